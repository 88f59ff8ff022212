package asr

import "time"

// Transcript is the result of recognizing one audio window.
type Transcript struct {
	// Text is the recognized text, whitespace-trimmed. May be empty when the
	// window contained no intelligible speech.
	Text string

	// Language is the detected (or configured) language of the speech as a
	// lowercase name or two-letter code, e.g. "english" or "en".
	Language string

	// LanguageConfidence is the engine's confidence in the language
	// detection, in [0, 1]. Engines that do not report this use 1.0 for a
	// fixed configured language and 0 otherwise.
	LanguageConfidence float64

	// Confidence is the engine's overall confidence in Text, in [0, 1], or 0
	// if the engine does not report one.
	Confidence float64

	// AudioDuration is the duration of the audio window that produced this
	// transcript.
	AudioDuration time.Duration

	// ProcessingLatency is how long the engine took to produce this result.
	ProcessingLatency time.Duration

	// Timestamp is when recognition of this window completed.
	Timestamp time.Time
}
