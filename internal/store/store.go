// Package store defines the transcript archive interface and the event
// subscriber that feeds it. The archive is an optional pipeline consumer:
// when configured, every finalized transcript and translation is persisted as
// it is broadcast.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/polyvox/polyvox/internal/event"
)

// TranscriptRecord is one archived finalized transcript.
type TranscriptRecord struct {
	Text      string
	Language  string
	Revision  bool
	AudioSecs float64
	CreatedAt time.Time
}

// TranslationRecord is one archived per-language translation result.
type TranslationRecord struct {
	SourceText     string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	Confidence     float64
	CreatedAt      time.Time
}

// Archive persists pipeline output. Implementations must be safe for
// concurrent use.
type Archive interface {
	// SaveTranscript appends one finalized transcript.
	SaveTranscript(ctx context.Context, rec TranscriptRecord) error

	// SaveTranslation appends one translation result.
	SaveTranslation(ctx context.Context, rec TranslationRecord) error

	// RecentTranscripts returns up to limit transcripts, newest first.
	RecentTranscripts(ctx context.Context, limit int) ([]TranscriptRecord, error)

	// Ping probes the backing store. Used by readiness checks.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}

// Subscriber adapts an Archive to the broadcaster's subscriber interface.
// Persistence failures are logged but never returned: a flaky database must
// not get the archive unregistered from the broadcast set.
type Subscriber struct {
	archive Archive
	logger  *slog.Logger
	timeout time.Duration
}

// NewSubscriber wraps archive for event delivery. A nil logger falls back to
// slog.Default.
func NewSubscriber(archive Archive, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		archive: archive,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// Deliver persists transcription and translation events and ignores the rest.
func (s *Subscriber) Deliver(ev event.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch data := ev.Data.(type) {
	case event.Transcription:
		err := s.archive.SaveTranscript(ctx, TranscriptRecord{
			Text:      data.Text,
			Language:  data.Language,
			Revision:  data.Revision,
			AudioSecs: data.AudioSeconds,
			CreatedAt: ev.Timestamp,
		})
		if err != nil {
			s.logger.Warn("archive transcript write failed", "error", err)
		}
	case event.Translation:
		err := s.archive.SaveTranslation(ctx, TranslationRecord{
			SourceText:     data.SourceText,
			TranslatedText: data.TranslatedText,
			SourceLanguage: data.SourceLanguage,
			TargetLanguage: data.TargetLanguage,
			Confidence:     data.Confidence,
			CreatedAt:      ev.Timestamp,
		})
		if err != nil {
			s.logger.Warn("archive translation write failed", "error", err)
		}
	}
	return nil
}

// Ensure Subscriber implements event.Subscriber at compile time.
var _ event.Subscriber = (*Subscriber)(nil)
