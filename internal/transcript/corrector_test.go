package transcript

import (
	"strings"
	"testing"
)

// stubMatcher matches exact (case-insensitive) entries from a fixed map.
type stubMatcher struct {
	replacements map[string]string
}

func (s *stubMatcher) Match(word string, terms []string) (string, float64, bool) {
	if r, ok := s.replacements[strings.ToLower(word)]; ok {
		return r, 0.9, true
	}
	return word, 0, false
}

func TestCorrectorSingleWord(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{replacements: map[string]string{"istambul": "Istanbul"}}
	c := NewCorrector(m, []string{"Istanbul"})

	got, corrections := c.Correct("flights to istambul tomorrow")
	if want := "flights to Istanbul tomorrow"; got != want {
		t.Fatalf("Correct = %q, want %q", got, want)
	}
	if len(corrections) != 1 {
		t.Fatalf("corrections = %d, want 1", len(corrections))
	}
	if corrections[0].Original != "istambul" || corrections[0].Corrected != "Istanbul" {
		t.Fatalf("unexpected correction %+v", corrections[0])
	}
}

func TestCorrectorMultiWordTermWins(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{replacements: map[string]string{
		"mashin translation": "machine translation",
		"mashin":             "machine",
	}}
	c := NewCorrector(m, []string{"machine translation"})

	got, corrections := c.Correct("the mashin translation demo")
	if want := "the machine translation demo"; got != want {
		t.Fatalf("Correct = %q, want %q", got, want)
	}
	if len(corrections) != 1 {
		t.Fatalf("corrections = %d, want 1 (longest window should win)", len(corrections))
	}
	if corrections[0].Original != "mashin translation" {
		t.Fatalf("correction consumed %q, want the two-word window", corrections[0].Original)
	}
}

func TestCorrectorAlreadyCorrect(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{replacements: map[string]string{"istanbul": "Istanbul"}}
	c := NewCorrector(m, []string{"Istanbul"})

	got, corrections := c.Correct("Istanbul is crowded")
	if want := "Istanbul is crowded"; got != want {
		t.Fatalf("Correct = %q, want %q", got, want)
	}
	if len(corrections) != 0 {
		t.Fatalf("expected no recorded corrections for already-correct text, got %d", len(corrections))
	}
}

func TestCorrectorNoGlossary(t *testing.T) {
	t.Parallel()

	c := NewCorrector(nil, nil)
	got, corrections := c.Correct("anything at all")
	if got != "anything at all" || corrections != nil {
		t.Fatalf("expected no-op, got %q with %d corrections", got, len(corrections))
	}
}

func TestCorrectorEmptyText(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{replacements: map[string]string{}}
	c := NewCorrector(m, []string{"Istanbul"})
	got, corrections := c.Correct("   ")
	if got != "   " || len(corrections) != 0 {
		t.Fatalf("expected blank text unchanged, got %q", got)
	}
}
