package audio

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultMinWindow is the minimum accumulated audio duration before the
	// buffer yields a recognition window.
	DefaultMinWindow = 10 * time.Second

	// DefaultMaxWindow is the maximum audio span the buffer retains. Older
	// samples are evicted once the cap is exceeded.
	DefaultMaxWindow = 30 * time.Second

	// levelSpan is the span of recent audio used for the RMS level statistic.
	levelSpan = 100 * time.Millisecond
)

// RollingBuffer accumulates capture frames into a bounded, fixed-duration
// window of mono samples. Push never blocks beyond a short critical section,
// so it is safe to call from a device callback path. The retained sample
// count never exceeds maxWindow × sampleRate.
//
// All methods are safe for concurrent use.
type RollingBuffer struct {
	mu      sync.Mutex
	samples []float32
	lastAt  time.Time

	sampleRate int
	minSamples int
	maxSamples int
}

// BufferOption is a functional option for configuring a [RollingBuffer].
type BufferOption func(*RollingBuffer)

// WithMinWindow sets the minimum accumulated duration before [RollingBuffer.Window]
// yields a window. Default: 10s.
func WithMinWindow(d time.Duration) BufferOption {
	return func(b *RollingBuffer) {
		b.minSamples = samplesFor(d, b.sampleRate)
	}
}

// WithMaxWindow sets the maximum retained duration. Default: 30s.
func WithMaxWindow(d time.Duration) BufferOption {
	return func(b *RollingBuffer) {
		b.maxSamples = samplesFor(d, b.sampleRate)
	}
}

// NewRollingBuffer creates a buffer for mono audio at the given sample rate.
func NewRollingBuffer(sampleRate int, opts ...BufferOption) *RollingBuffer {
	b := &RollingBuffer{
		sampleRate: sampleRate,
		minSamples: samplesFor(DefaultMinWindow, sampleRate),
		maxSamples: samplesFor(DefaultMaxWindow, sampleRate),
	}
	for _, o := range opts {
		o(b)
	}
	if b.maxSamples < b.minSamples {
		b.maxSamples = b.minSamples
	}
	return b
}

// Push appends the frame's samples and evicts the oldest excess once the
// retained span exceeds the maximum window. Frames with a device status
// anomaly are accepted like any other frame; surfacing the anomaly is the
// caller's concern.
func (b *RollingBuffer) Push(frame Frame) {
	if len(frame.Samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, frame.Samples...)
	b.lastAt = frame.Timestamp
	if b.lastAt.IsZero() {
		b.lastAt = time.Now()
	}

	if excess := len(b.samples) - b.maxSamples; excess > 0 {
		// Copy survivors to a fresh backing array so the evicted prefix does
		// not pin memory for the lifetime of the stream.
		fresh := make([]float32, b.maxSamples, b.maxSamples)
		copy(fresh, b.samples[excess:])
		b.samples = fresh
	}
}

// Window returns a copy of the accumulated samples once their duration has
// reached the minimum window, together with true. Before that threshold it
// returns nil, false. The buffer contents are not consumed: successive calls
// return overlapping windows as the buffer rolls forward, which is what the
// downstream reconciler is built for.
func (b *RollingBuffer) Window() (*Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) < b.minSamples {
		return nil, false
	}

	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return &Window{
		Samples:    out,
		SampleRate: b.sampleRate,
		CapturedAt: b.lastAt,
	}, true
}

// Level returns the RMS amplitude of the most recent ~100ms of audio,
// suitable for liveness monitoring. Returns 0 when the buffer is empty.
func (b *RollingBuffer) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return 0
	}
	recent := b.samples
	if span := samplesFor(levelSpan, b.sampleRate); len(recent) > span {
		recent = recent[len(recent)-span:]
	}

	var sum float64
	for _, s := range recent {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(recent)))
}

// Len returns the number of retained samples. Intended for tests and status
// reporting.
func (b *RollingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Reset discards all buffered audio.
func (b *RollingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
	b.lastAt = time.Time{}
}

// samplesFor converts a duration to a sample count at the given rate.
func samplesFor(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}
