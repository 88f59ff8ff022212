package mt

import "time"

// Result is the outcome of translating one text into one target language.
type Result struct {
	// SourceText is the original input text.
	SourceText string

	// TranslatedText is the translation, or a bracketed placeholder when the
	// engine failed for this target.
	TranslatedText string

	// SourceLanguage and TargetLanguage are the canonical language codes the
	// engine was asked to translate between.
	SourceLanguage string
	TargetLanguage string

	// Confidence is the engine's confidence in the translation, in [0, 1].
	// Same-language short-circuits report 1.0.
	Confidence float64

	// ProcessingLatency is how long the engine took for this target.
	ProcessingLatency time.Duration

	// Err is set when the engine failed for this target. TranslatedText then
	// carries a placeholder instead of a translation.
	Err error
}
