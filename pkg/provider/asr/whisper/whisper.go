// This file contains the Recognizer implementation backed by the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.

// Package whisper implements asr.Recognizer on top of whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/polyvox/polyvox/pkg/audio"
	"github.com/polyvox/polyvox/pkg/provider/asr"
)

const (
	defaultLanguage = "auto"

	// maxWindow caps the audio passed to a single inference. Longer windows
	// are truncated to their most recent portion.
	maxWindow = 30 * time.Second
)

// Compile-time assertion that Recognizer satisfies asr.Recognizer.
var _ asr.Recognizer = (*Recognizer)(nil)

// Recognizer implements asr.Recognizer using the whisper.cpp Go bindings
// (CGO). The model is loaded once at startup and shared across all calls.
type Recognizer struct {
	model     whisperlib.Model
	modelPath string
	language  string

	// whisper contexts are not thread-safe; inference is serialized.
	mu sync.Mutex
}

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage fixes the recognition language (e.g., "en", "es"). The default
// "auto" lets the model detect the language per window.
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// New creates a Recognizer that loads the whisper.cpp model from the given
// file path. The caller must call Close when the recognizer is no longer
// needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{
		model:     model,
		modelPath: modelPath,
		language:  defaultLanguage,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the whisper model. Must be called when the recognizer is no
// longer needed.
func (r *Recognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// ModelInfo returns a description of the loaded model file.
func (r *Recognizer) ModelInfo() string {
	return "whisper.cpp " + filepath.Base(r.modelPath)
}

// Recognize runs whisper.cpp inference over the window using a fresh context
// from the shared model and returns the concatenated segment text.
func (r *Recognizer) Recognize(ctx context.Context, w *audio.Window) (*asr.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if w == nil || len(w.Samples) == 0 {
		return nil, errors.New("whisper: empty audio window")
	}

	samples := prepare(w)
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	wctx, err := r.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if r.language != "" && r.language != defaultLanguage {
		if err := wctx.SetLanguage(r.language); err != nil {
			return nil, fmt.Errorf("whisper: set language %q: %w", r.language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	lang := r.language
	langConfidence := 1.0
	if lang == "" || lang == defaultLanguage {
		lang = wctx.DetectedLanguage()
		langConfidence = 0
	}

	return &asr.Transcript{
		Text:               strings.Join(parts, " "),
		Language:           lang,
		LanguageConfidence: langConfidence,
		AudioDuration:      w.Duration(),
		ProcessingLatency:  time.Since(start),
		Timestamp:          time.Now(),
	}, nil
}

// prepare truncates the window to the most recent maxWindow of audio and
// peak-normalizes it so quiet captures still produce usable logits.
func prepare(w *audio.Window) []float32 {
	samples := w.Samples
	if limit := int(maxWindow.Seconds()) * w.SampleRate; len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}

	var peak float64
	for _, s := range samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}

	out := make([]float32, len(samples))
	if peak > 0 && peak < 1 {
		scale := float32(1 / peak)
		for i, s := range samples {
			out[i] = s * scale
		}
	} else {
		copy(out, samples)
	}
	return out
}
