// Package audio defines the capture-side types for the Polyvox translation
// pipeline: audio frames, the rolling recognition window buffer, and the
// interfaces a capture device adapter must implement.
//
// The two primary abstractions are:
//
//   - [Source] — opens a capture device and returns a [Stream].
//   - [Stream] — an active capture session delivering [Frame] values until
//     closed.
//
// Implementations wrap device backends (ALSA, CoreAudio, a network feed, a
// prerecorded file for tests). The interfaces are intentionally narrow to
// keep the pipeline decoupled from driver details.
//
// This package lives under pkg/ because external code (third-party capture
// adapters) is expected to implement [Source] and [Stream].
package audio

import "context"

// StreamConfig describes the audio format requested from a capture source.
type StreamConfig struct {
	// SampleRate is the capture sample rate in Hz. 16000 is the usual choice
	// for speech recognition input.
	SampleRate int

	// Device selects a specific input device by backend-specific identifier.
	// Empty selects the backend's default input.
	Device string
}

// Stream represents an active capture session on an audio input device.
//
// A Stream is obtained from [Source.Open] and remains valid until
// [Stream.Close] is called. Implementations must be safe for concurrent use.
type Stream interface {
	// Frames returns a read-only channel delivering captured [Frame] values
	// in arrival order. The channel is closed when the stream ends, either
	// via Close or a fatal device failure. Device anomalies that do not end
	// the stream are reported on the frames themselves via [Frame.Status].
	Frames() <-chan Frame

	// Device returns a human-readable descriptor of the capture device
	// backing this stream (e.g., "Focusrite Scarlett 2i2 (default)").
	Device() string

	// Close stops capture, closes the Frames channel, and releases device
	// resources. Close is safe to call more than once; subsequent calls are
	// no-ops and return nil.
	Close() error
}

// Source is the entry point for an audio capture backend.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Open starts capturing with the given configuration and returns an
	// active [Stream]. The supplied ctx governs the lifetime of the open
	// attempt only; once open, the Stream lives until [Stream.Close].
	//
	// Returns an error if the device cannot be opened (no such device,
	// unsupported sample rate, exclusive-use conflict, ...).
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}
