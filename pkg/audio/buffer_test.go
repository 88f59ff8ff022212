package audio

import (
	"math"
	"testing"
	"time"
)

const testRate = 16000

func frameOf(n int, v float32) Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = v
	}
	return Frame{Samples: samples, SampleRate: testRate, Timestamp: time.Now()}
}

func TestRollingBufferWindowThreshold(t *testing.T) {
	t.Parallel()

	buf := NewRollingBuffer(testRate,
		WithMinWindow(1*time.Second),
		WithMaxWindow(3*time.Second),
	)

	// One sample short of the minimum window must not produce a window.
	buf.Push(frameOf(testRate-1, 0.1))
	if _, ok := buf.Window(); ok {
		t.Fatal("expected no window below minimum duration")
	}

	// Reaching the threshold exactly must produce one.
	buf.Push(frameOf(1, 0.1))
	w, ok := buf.Window()
	if !ok {
		t.Fatal("expected window at exact minimum duration")
	}
	if got, want := len(w.Samples), testRate; got != want {
		t.Fatalf("window samples = %d, want %d", got, want)
	}
	if w.SampleRate != testRate {
		t.Fatalf("window sample rate = %d, want %d", w.SampleRate, testRate)
	}
}

func TestRollingBufferEviction(t *testing.T) {
	t.Parallel()

	buf := NewRollingBuffer(testRate,
		WithMinWindow(1*time.Second),
		WithMaxWindow(2*time.Second),
	)

	// Push 5 seconds of audio into a 2 second buffer.
	for i := 0; i < 5; i++ {
		buf.Push(frameOf(testRate, float32(i)))
	}

	maxSamples := 2 * testRate
	if got := buf.Len(); got > maxSamples {
		t.Fatalf("buffer holds %d samples, cap is %d", got, maxSamples)
	}

	// Oldest audio must be gone: the retained samples are the last
	// two seconds pushed (values 3 and 4).
	w, ok := buf.Window()
	if !ok {
		t.Fatal("expected window from full buffer")
	}
	if w.Samples[0] != 3 {
		t.Fatalf("first retained sample = %v, want 3", w.Samples[0])
	}
	if last := w.Samples[len(w.Samples)-1]; last != 4 {
		t.Fatalf("last retained sample = %v, want 4", last)
	}
}

func TestRollingBufferWindowIsCopy(t *testing.T) {
	t.Parallel()

	buf := NewRollingBuffer(testRate, WithMinWindow(1*time.Second))
	buf.Push(frameOf(testRate, 0.5))

	w1, ok := buf.Window()
	if !ok {
		t.Fatal("expected window")
	}
	w1.Samples[0] = 99

	w2, _ := buf.Window()
	if w2.Samples[0] == 99 {
		t.Fatal("window shares backing array with buffer")
	}

	// Windows are non-consuming: the buffer keeps growing across reads.
	buf.Push(frameOf(testRate, 0.5))
	w3, _ := buf.Window()
	if len(w3.Samples) <= len(w2.Samples) {
		t.Fatal("expected later window to cover more audio")
	}
}

func TestRollingBufferLevel(t *testing.T) {
	t.Parallel()

	buf := NewRollingBuffer(testRate)
	if lvl := buf.Level(); lvl != 0 {
		t.Fatalf("empty buffer level = %v, want 0", lvl)
	}

	// A constant-amplitude signal has RMS equal to its amplitude.
	buf.Push(frameOf(testRate, 0.25))
	if lvl := buf.Level(); math.Abs(lvl-0.25) > 1e-6 {
		t.Fatalf("level = %v, want 0.25", lvl)
	}
}

func TestRollingBufferReset(t *testing.T) {
	t.Parallel()

	buf := NewRollingBuffer(testRate, WithMinWindow(1*time.Second))
	buf.Push(frameOf(2*testRate, 0.1))
	buf.Reset()

	if got := buf.Len(); got != 0 {
		t.Fatalf("Len after Reset = %d, want 0", got)
	}
	if _, ok := buf.Window(); ok {
		t.Fatal("expected no window after Reset")
	}
}

func TestWindowDuration(t *testing.T) {
	t.Parallel()

	w := &Window{Samples: make([]float32, 3*testRate/2), SampleRate: testRate}
	if got, want := w.Duration(), 1500*time.Millisecond; got != want {
		t.Fatalf("Duration = %v, want %v", got, want)
	}
}
