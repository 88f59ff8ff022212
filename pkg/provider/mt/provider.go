// Package mt defines the Translator interface for machine translation backends.
//
// A translator converts a finalized transcript from its source language into
// one target language per call. Fan-out across multiple targets is the
// caller's concern; implementations only guarantee that an individual
// Translate call is safe for concurrent use.
package mt

import "context"

// Translator is the abstraction over any machine translation backend.
type Translator interface {
	// Translate converts text from sourceLang to targetLang. Language names
	// are canonicalized via CanonicalCode before being passed to the engine,
	// so callers may use either full names ("spanish") or short codes ("es").
	//
	// Implementations are not called for same-language pairs; the fan-out
	// stage short-circuits those before reaching the engine.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error)

	// EngineInfo returns a short human-readable description of the backend
	// (e.g., "openai gpt-4o-mini"). Used in startup summaries and status
	// reports.
	EngineInfo() string
}
