// Package postgres implements the transcript archive on top of a PostgreSQL
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyvox/polyvox/internal/store"
)

// Compile-time interface check.
var _ store.Archive = (*Archive)(nil)

// schema creates the archive tables on first connect. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id          BIGSERIAL PRIMARY KEY,
    text        TEXT        NOT NULL,
    language    TEXT        NOT NULL,
    revision    BOOLEAN     NOT NULL DEFAULT FALSE,
    audio_secs  DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS translations (
    id              BIGSERIAL PRIMARY KEY,
    source_text     TEXT        NOT NULL,
    translated_text TEXT        NOT NULL,
    source_language TEXT        NOT NULL,
    target_language TEXT        NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations (created_at DESC);
`

// Archive is the PostgreSQL-backed transcript archive. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
type Archive struct {
	pool *pgxpool.Pool
}

// New creates an Archive, establishes a connection pool to the database at
// dsn, and ensures the archive tables exist.
func New(ctx context.Context, dsn string) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: create schema: %w", err)
	}

	return &Archive{pool: pool}, nil
}

// SaveTranscript implements [store.Archive].
func (a *Archive) SaveTranscript(ctx context.Context, rec store.TranscriptRecord) error {
	const q = `
		INSERT INTO transcripts (text, language, revision, audio_secs, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := a.pool.Exec(ctx, q,
		rec.Text,
		rec.Language,
		rec.Revision,
		rec.AudioSecs,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive: save transcript: %w", err)
	}
	return nil
}

// SaveTranslation implements [store.Archive].
func (a *Archive) SaveTranslation(ctx context.Context, rec store.TranslationRecord) error {
	const q = `
		INSERT INTO translations
		    (source_text, translated_text, source_language, target_language, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.pool.Exec(ctx, q,
		rec.SourceText,
		rec.TranslatedText,
		rec.SourceLanguage,
		rec.TargetLanguage,
		rec.Confidence,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive: save translation: %w", err)
	}
	return nil
}

// RecentTranscripts implements [store.Archive]. Results are ordered newest
// first.
func (a *Archive) RecentTranscripts(ctx context.Context, limit int) ([]store.TranscriptRecord, error) {
	const q = `
		SELECT text, language, revision, audio_secs, created_at
		FROM   transcripts
		ORDER  BY created_at DESC
		LIMIT  $1`

	rows, err := a.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: recent transcripts: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.TranscriptRecord, error) {
		var rec store.TranscriptRecord
		err := row.Scan(&rec.Text, &rec.Language, &rec.Revision, &rec.AudioSecs, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: scan rows: %w", err)
	}
	if records == nil {
		records = []store.TranscriptRecord{}
	}
	return records, nil
}

// Ping implements [store.Archive].
func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close implements [store.Archive].
func (a *Archive) Close() {
	a.pool.Close()
}
