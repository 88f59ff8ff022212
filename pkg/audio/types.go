package audio

import "time"

// Frame is a single batch of mono PCM samples delivered by a capture source.
// Frames are the atomic unit of audio transport between the capture callback
// and the rolling buffer; they are transient and owned by the buffer once
// pushed.
type Frame struct {
	// Samples holds normalized mono samples in [-1, 1].
	Samples []float32

	// SampleRate in Hz (e.g., 16000 for speech recognition input).
	SampleRate int

	// Timestamp marks when this frame arrived from the device.
	Timestamp time.Time

	// Status carries a non-fatal device anomaly reported alongside the frame
	// (e.g., "input overflow"). Empty means the frame arrived cleanly. Frames
	// with a non-empty Status are still usable audio.
	Status string
}

// Window is a contiguous slice of accumulated samples submitted as one
// recognition unit. A window spans at least the buffer's minimum duration and
// at most its maximum duration.
type Window struct {
	// Samples is an independent copy of the buffered audio; mutating it does
	// not affect the rolling buffer it was drained from.
	Samples []float32

	// SampleRate in Hz.
	SampleRate int

	// CapturedAt marks the end of the window (the arrival time of its newest
	// samples).
	CapturedAt time.Time
}

// Duration returns the audio length of the window.
func (w *Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}
