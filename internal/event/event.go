// Package event defines the wire-level event model and the broadcaster that
// fans events out to subscribers.
//
// Events are the only thing the pipeline publishes: recognized transcripts,
// their translations, pipeline status changes, and non-fatal errors. Every
// event serializes to a {"type": ..., "data": {...}} JSON envelope.
package event

import "time"

// Type discriminates the Data payload of an Event.
type Type string

const (
	TypeTranscription Type = "transcription"
	TypeTranslation   Type = "translation"
	TypeStatus        Type = "status"
	TypeError         Type = "error"
)

// Event is the envelope delivered to every subscriber.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Transcription is the Data payload for TypeTranscription events. Emitted for
// every transcript the reconciler forwards.
type Transcription struct {
	Text               string  `json:"text"`
	Language           string  `json:"language"`
	LanguageConfidence float64 `json:"language_confidence"`

	// Revision is true when this transcript replaces the previously emitted
	// one rather than continuing after it.
	Revision bool `json:"revision"`

	AudioSeconds   float64 `json:"audio_seconds"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// Translation is the Data payload for TypeTranslation events. One event is
// emitted per target language.
type Translation struct {
	SourceText     string  `json:"source_text"`
	TranslatedText string  `json:"translated_text"`
	SourceLanguage string  `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	Confidence     float64 `json:"confidence"`
	LatencySeconds float64 `json:"latency_seconds"`
}

// Status is the Data payload for TypeStatus events, emitted on pipeline state
// transitions and in response to status queries.
type Status struct {
	State     string   `json:"state"`
	Device    string   `json:"device,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Error is the Data payload for TypeError events. These report non-fatal
// stage failures; the pipeline keeps running after emitting one.
type Error struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// New wraps a payload in an Event envelope stamped with the current time.
func New(t Type, data any) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}
