// Package mock provides test doubles for the mt package interfaces.
//
// Use Translator to return scripted translations and inspect which texts were
// sent for which target languages.
//
// Example:
//
//	tr := &mock.Translator{
//	    TranslateFn: func(ctx context.Context, text, src, dst string) (*mt.Result, error) {
//	        return &mt.Result{SourceText: text, TranslatedText: "[" + dst + "] " + text}, nil
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/polyvox/polyvox/pkg/provider/mt"
)

// TranslateCall records a single invocation of Translator.Translate.
type TranslateCall struct {
	// Text is the source text passed to Translate.
	Text string
	// SourceLang and TargetLang are the language arguments passed to Translate.
	SourceLang string
	TargetLang string
}

// Translator is a mock implementation of mt.Translator.
type Translator struct {
	mu sync.Mutex

	// TranslateFn, if non-nil, produces the result for every Translate call.
	TranslateFn func(ctx context.Context, text, sourceLang, targetLang string) (*mt.Result, error)

	// TranslateErr, if non-nil and TranslateFn is nil, is returned by every
	// Translate call.
	TranslateErr error

	// Engine is returned by EngineInfo. Defaults to "mock".
	Engine string

	// TranslateCalls records every call to Translate in order.
	TranslateCalls []TranslateCall
}

// Translate records the call and delegates to TranslateFn. Without a
// TranslateFn it echoes the text back prefixed with the target language.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (*mt.Result, error) {
	t.mu.Lock()
	t.TranslateCalls = append(t.TranslateCalls, TranslateCall{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	fn := t.TranslateFn
	err := t.TranslateErr
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, sourceLang, targetLang)
	}
	if err != nil {
		return nil, err
	}
	src, _ := mt.CanonicalCode(sourceLang)
	dst, _ := mt.CanonicalCode(targetLang)
	return &mt.Result{
		SourceText:     text,
		TranslatedText: "[" + dst + "] " + text,
		SourceLanguage: src,
		TargetLanguage: dst,
		Confidence:     0.9,
	}, nil
}

// EngineInfo returns Engine, or "mock" if unset.
func (t *Translator) EngineInfo() string {
	if t.Engine == "" {
		return "mock"
	}
	return t.Engine
}

// TranslateCallCount returns the number of Translate calls. Thread-safe.
func (t *Translator) TranslateCallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.TranslateCalls)
}

// ResetCalls clears all recorded calls. Thread-safe.
func (t *Translator) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranslateCalls = nil
}

// Ensure Translator implements mt.Translator at compile time.
var _ mt.Translator = (*Translator)(nil)
