// Package mock provides test doubles for the audio package interfaces.
//
// Use Source to verify that the caller opens streams with the expected
// StreamConfig. Use Stream to feed controlled Frame values into the pipeline.
//
// Example:
//
//	stream := mock.NewStream("test-device", 16)
//	src := &mock.Source{Stream: stream}
//	s, _ := src.Open(ctx, cfg)
//	stream.FramesCh <- audio.Frame{Samples: samples, SampleRate: 16000}
package mock

import (
	"context"
	"sync"

	"github.com/polyvox/polyvox/pkg/audio"
)

// OpenCall records a single invocation of Source.Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Cfg is the StreamConfig passed to Open.
	Cfg audio.StreamConfig
}

// Source is a mock implementation of audio.Source.
type Source struct {
	mu sync.Mutex

	// Stream is returned by Open. If nil, Open returns a new default Stream.
	Stream audio.Stream

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open.
	OpenCalls []OpenCall
}

// Open records the call and returns Stream, OpenErr.
func (s *Source) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls = append(s.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.Stream != nil {
		return s.Stream, nil
	}
	return NewStream("mock-device", 64), nil
}

// Ensure Source implements audio.Source at compile time.
var _ audio.Source = (*Source)(nil)

// Stream is a mock implementation of audio.Stream. Tests own FramesCh: send
// the frames the pipeline should receive, then close the channel (or call
// Close) when done.
type Stream struct {
	// FramesCh is the channel returned by Frames.
	FramesCh chan audio.Frame

	// DeviceName is returned by Device.
	DeviceName string

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	mu         sync.Mutex
	closed     bool
	CloseCalls int
}

// NewStream creates a mock stream with a buffered frame channel.
func NewStream(device string, buf int) *Stream {
	return &Stream{
		FramesCh:   make(chan audio.Frame, buf),
		DeviceName: device,
	}
}

// Frames returns the test-owned frame channel.
func (s *Stream) Frames() <-chan audio.Frame { return s.FramesCh }

// Device returns the configured device descriptor.
func (s *Stream) Device() string { return s.DeviceName }

// Close closes the frame channel on first call and records the invocation.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.FramesCh)
	return s.CloseErr
}

// Ensure Stream implements audio.Stream at compile time.
var _ audio.Stream = (*Stream)(nil)
