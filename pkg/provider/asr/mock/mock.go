// Package mock provides test doubles for the asr package interfaces.
//
// Use Recognizer to return scripted Transcript values and inspect which audio
// windows were delivered.
//
// Example:
//
//	rec := &mock.Recognizer{
//	    Results: []*asr.Transcript{{Text: "hello world", Language: "english"}},
//	}
//	tr, _ := rec.Recognize(ctx, window)
package mock

import (
	"context"
	"sync"

	"github.com/polyvox/polyvox/pkg/audio"
	"github.com/polyvox/polyvox/pkg/provider/asr"
)

// RecognizeCall records a single invocation of Recognizer.Recognize.
type RecognizeCall struct {
	// Ctx is the context passed to Recognize.
	Ctx context.Context
	// Window is the audio window passed to Recognize.
	Window *audio.Window
}

// Recognizer is a mock implementation of asr.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Results are returned by successive Recognize calls in order. Once
	// exhausted, the last element is returned repeatedly. If empty, Recognize
	// returns an empty Transcript.
	Results []*asr.Transcript

	// RecognizeErr, if non-nil, is returned by every Recognize call.
	RecognizeErr error

	// RecognizeFn, if non-nil, replaces the scripted behaviour entirely.
	RecognizeFn func(ctx context.Context, w *audio.Window) (*asr.Transcript, error)

	// Model is returned by ModelInfo. Defaults to "mock".
	Model string

	// RecognizeCalls records every call to Recognize.
	RecognizeCalls []RecognizeCall
}

// Recognize records the call and returns the next scripted result.
func (r *Recognizer) Recognize(ctx context.Context, w *audio.Window) (*asr.Transcript, error) {
	r.mu.Lock()
	n := len(r.RecognizeCalls)
	r.RecognizeCalls = append(r.RecognizeCalls, RecognizeCall{Ctx: ctx, Window: w})
	fn := r.RecognizeFn
	err := r.RecognizeErr
	var result *asr.Transcript
	if len(r.Results) > 0 {
		i := n
		if i >= len(r.Results) {
			i = len(r.Results) - 1
		}
		result = r.Results[i]
	}
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, w)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &asr.Transcript{}, nil
	}
	return result, nil
}

// ModelInfo returns Model, or "mock" if unset.
func (r *Recognizer) ModelInfo() string {
	if r.Model == "" {
		return "mock"
	}
	return r.Model
}

// RecognizeCallCount returns the number of Recognize calls. Thread-safe.
func (r *Recognizer) RecognizeCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.RecognizeCalls)
}

// ResetCalls clears all recorded calls. Thread-safe.
func (r *Recognizer) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecognizeCalls = nil
}

// Ensure Recognizer implements asr.Recognizer at compile time.
var _ asr.Recognizer = (*Recognizer)(nil)
