// Package pipeline implements the streaming orchestration core: window
// scheduling over the rolling audio buffer, the serialized recognition stage,
// transcript reconciliation, and the per-language translation fan-out, all
// supervised by a Coordinator that owns start/stop lifecycle.
package pipeline

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/polyvox/polyvox/pkg/provider/asr"
)

const (
	// DefaultGapThreshold is the wall-clock gap beyond which two transcripts
	// are always treated as unrelated speech.
	DefaultGapThreshold = 3 * time.Second

	// DefaultSimilarityThreshold is the word-set overlap above which two
	// temporally close transcripts are treated as the same utterance.
	DefaultSimilarityThreshold = 0.7
)

// Finalized is a reconciled transcript ready for downstream consumption.
type Finalized struct {
	asr.Transcript

	// IsCorrection is true when this transcript replaces the previously
	// forwarded one rather than continuing after it.
	IsCorrection bool
}

// Reconciler decides, for each raw transcript, whether it is a correction of,
// duplicate of, or distinct from the most recently forwarded transcript.
//
// Sliding recognition windows reprocess trailing audio from the previous
// window, so consecutive transcripts often overlap. The heuristic: transcripts
// closer together than the gap threshold whose word sets overlap above the
// similarity threshold describe the same utterance; the longer text is the
// more complete version and supersedes the shorter, while a shorter rehash is
// a stale duplicate.
//
// Safe for concurrent use, though the pipeline only calls it from the
// recognition worker.
type Reconciler struct {
	gap        time.Duration
	similarity float64

	mu       sync.Mutex
	lastText string
	lastTime time.Time
	hasLast  bool
}

// ReconcilerOption is a functional option for configuring a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithGapThreshold overrides the wall-clock gap threshold.
func WithGapThreshold(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.gap = d
		}
	}
}

// WithSimilarityThreshold overrides the word-set overlap threshold.
func WithSimilarityThreshold(s float64) ReconcilerOption {
	return func(r *Reconciler) {
		if s > 0 {
			r.similarity = s
		}
	}
}

// NewReconciler creates a Reconciler with no history.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		gap:        DefaultGapThreshold,
		similarity: DefaultSimilarityThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile applies the duplicate/correction heuristic to t. It returns the
// transcript to forward and true, or nil and false when t is dropped.
//
// Decision order:
//   - empty text: drop, history unchanged
//   - no history: forward as new
//   - gap ≥ threshold: unrelated speech, forward as new
//   - word-set overlap ≤ threshold: unrelated despite proximity, forward as new
//   - overlap > threshold and new text strictly longer: forward as correction
//   - otherwise: stale duplicate, drop, history unchanged
//
// Every forward replaces the history with the forwarded text and timestamp.
func (r *Reconciler) Reconcile(t *asr.Transcript) (*Finalized, bool) {
	if strings.TrimSpace(t.Text) == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasLast || t.Timestamp.Sub(r.lastTime) >= r.gap {
		r.commit(t)
		return &Finalized{Transcript: *t}, true
	}

	if wordOverlap(r.lastText, t.Text) <= r.similarity {
		r.commit(t)
		return &Finalized{Transcript: *t}, true
	}

	// Longer is measured in characters, not bytes, so multibyte scripts
	// compare correctly.
	if utf8.RuneCountInString(t.Text) > utf8.RuneCountInString(r.lastText) {
		r.commit(t)
		return &Finalized{Transcript: *t, IsCorrection: true}, true
	}

	return nil, false
}

// LastText returns the most recently forwarded transcript text, or "" when
// nothing has been forwarded yet. Used for status reporting.
func (r *Reconciler) LastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastText
}

// Reset clears the reconciliation history.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastText = ""
	r.lastTime = time.Time{}
	r.hasLast = false
}

// commit replaces the history. Must be called with r.mu held.
func (r *Reconciler) commit(t *asr.Transcript) {
	r.lastText = t.Text
	r.lastTime = t.Timestamp
	r.hasLast = true
}

// wordOverlap computes |words(a) ∩ words(b)| / max(|words(a)|, |words(b)|)
// over case-insensitive whitespace-tokenized word sets.
func wordOverlap(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	common := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			common++
		}
	}

	denom := len(wa)
	if len(wb) > denom {
		denom = len(wb)
	}
	return float64(common) / float64(denom)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
