package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/polyvox/polyvox/pkg/provider/asr"
)

var epoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func tr(text string, offset float64) *asr.Transcript {
	return &asr.Transcript{
		Text:      text,
		Language:  "english",
		Timestamp: epoch.Add(time.Duration(offset * float64(time.Second))),
	}
}

func TestWordOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "half", a: "the cat sat", b: "the cat sat on the mat", want: 0.5},
		{name: "extension", a: "the quick brown fox", b: "the quick brown fox jumps", want: 0.8},
		{name: "prefix", a: "hello world today", b: "hello world", want: 2.0 / 3.0},
		{name: "identical", a: "hello world", b: "Hello World", want: 1.0},
		{name: "disjoint", a: "one two", b: "three four", want: 0},
		{name: "empty", a: "", b: "words", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := wordOverlap(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("wordOverlap(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestReconcilerFirstTranscriptForwarded(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	f, ok := r.Reconcile(tr("hello there", 10.0))
	if !ok {
		t.Fatal("first transcript must be forwarded")
	}
	if f.IsCorrection {
		t.Fatal("first transcript must not be a correction")
	}
}

func TestReconcilerEmptyTextDropped(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	if _, ok := r.Reconcile(tr("   ", 10.0)); ok {
		t.Fatal("blank transcript must be dropped")
	}
	if r.LastText() != "" {
		t.Fatal("blank transcript must not enter history")
	}
}

func TestReconcilerLowSimilarityForwardedAsNew(t *testing.T) {
	t.Parallel()

	// Overlap 3/6 = 0.5 within the gap window: unrelated despite proximity.
	r := NewReconciler()
	r.Reconcile(tr("the cat sat", 10.0))

	f, ok := r.Reconcile(tr("the cat sat on the mat", 11.0))
	if !ok {
		t.Fatal("expected forward")
	}
	if f.IsCorrection {
		t.Fatal("similarity 0.5 must forward as new, not correction")
	}
}

func TestReconcilerCorrection(t *testing.T) {
	t.Parallel()

	// Overlap 4/5 = 0.8 within the gap window, new text longer.
	r := NewReconciler()
	r.Reconcile(tr("the quick brown fox", 10.0))

	f, ok := r.Reconcile(tr("the quick brown fox jumps", 10.5))
	if !ok {
		t.Fatal("expected forward")
	}
	if !f.IsCorrection {
		t.Fatal("longer overlapping transcript must be a correction")
	}
	if got := r.LastText(); got != "the quick brown fox jumps" {
		t.Fatalf("history = %q, want the corrected text", got)
	}
}

func TestReconcilerThresholdIsStrict(t *testing.T) {
	t.Parallel()

	// Overlap 2/3 ≈ 0.67 is at or below the threshold, so the shorter new
	// transcript is still forwarded as new rather than dropped.
	r := NewReconciler()
	r.Reconcile(tr("hello world today", 10.0))

	f, ok := r.Reconcile(tr("hello world", 10.2))
	if !ok {
		t.Fatal("overlap <= 0.7 must forward as new")
	}
	if f.IsCorrection {
		t.Fatal("overlap <= 0.7 must not be a correction")
	}
}

func TestReconcilerDuplicateDropped(t *testing.T) {
	t.Parallel()

	// Shorter new text with overlap > 0.7 inside the gap window is a stale
	// duplicate; history must keep the longer original.
	r := NewReconciler()
	r.Reconcile(tr("hello world today friend", 10.0))

	if _, ok := r.Reconcile(tr("hello world today", 12.9)); ok {
		t.Fatal("expected duplicate to be dropped")
	}
	if got := r.LastText(); got != "hello world today friend" {
		t.Fatalf("history = %q, want unchanged original", got)
	}
}

func TestReconcilerGapResetsHistory(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.Reconcile(tr("hello world today friend", 10.0))

	// Same words, but after the gap threshold: unrelated speech.
	f, ok := r.Reconcile(tr("hello world today", 13.0))
	if !ok {
		t.Fatal("expected forward after gap threshold")
	}
	if f.IsCorrection {
		t.Fatal("post-gap transcript must be new, not a correction")
	}
	if got := r.LastText(); got != "hello world today" {
		t.Fatalf("history = %q, want the new transcript", got)
	}
}

func TestReconcilerConfigurableThresholds(t *testing.T) {
	t.Parallel()

	r := NewReconciler(
		WithGapThreshold(10*time.Second),
		WithSimilarityThreshold(0.4),
	)
	r.Reconcile(tr("the cat sat", 10.0))

	// Overlap 0.5 > 0.4 and longer, inside the widened gap: correction.
	f, ok := r.Reconcile(tr("the cat sat on the mat", 15.0))
	if !ok || !f.IsCorrection {
		t.Fatalf("expected correction under tuned thresholds, got ok=%v f=%+v", ok, f)
	}
}

func TestReconcilerCorrectionLengthCountsRunes(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	// 23 runes across 38 bytes: each "ééééé" is 5 runes, 10 bytes.
	r.Reconcile(tr("ééééé ééééé ééééé b c d", 10.0))

	// 30 runes across 35 bytes. Word overlap is 4/5 = 0.8 and the text is
	// longer in characters, so it must be forwarded as a correction even
	// though it is shorter in bytes.
	f, ok := r.Reconcile(tr("ééééé b c d wwwwwwwwwwwwwwwwww", 11.0))
	if !ok {
		t.Fatal("longer multibyte transcript must not be dropped as a duplicate")
	}
	if !f.IsCorrection {
		t.Fatal("longer multibyte transcript must be forwarded as a correction")
	}
	if got := r.LastText(); got != "ééééé b c d wwwwwwwwwwwwwwwwww" {
		t.Fatalf("history = %q, want the corrected text", got)
	}
}

func TestReconcilerReset(t *testing.T) {
	t.Parallel()

	r := NewReconciler()
	r.Reconcile(tr("hello world today friend", 10.0))
	r.Reset()

	// Without history even an overlapping shorter transcript is new.
	f, ok := r.Reconcile(tr("hello world today", 10.1))
	if !ok || f.IsCorrection {
		t.Fatalf("expected fresh forward after Reset, got ok=%v f=%+v", ok, f)
	}
}
