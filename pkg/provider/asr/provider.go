// Package asr defines the Recognizer interface for speech recognition backends.
//
// A recognizer wraps a speech-to-text engine (e.g., a local whisper.cpp model)
// and exposes a uniform batch interface: it accepts a window of mono float32
// PCM samples and returns a single Transcript with the recognized text, the
// detected language, and timing information.
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"

	"github.com/polyvox/polyvox/pkg/audio"
)

// Recognizer is the abstraction over any speech recognition backend.
//
// Recognize may be called from multiple goroutines; implementations serialize
// internally where the underlying engine requires it.
type Recognizer interface {
	// Recognize transcribes a single audio window and returns the result.
	//
	// Windows shorter than the engine's practical minimum may yield an empty
	// Transcript.Text; that is not an error. Returns an error only when the
	// engine itself fails or ctx is cancelled.
	Recognize(ctx context.Context, w *audio.Window) (*Transcript, error)

	// ModelInfo returns a short human-readable description of the loaded
	// model (e.g., "whisper.cpp ggml-base"). Used in startup summaries and
	// status reports.
	ModelInfo() string
}
