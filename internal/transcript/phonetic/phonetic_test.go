package phonetic

import "testing"

func TestMatcherPhoneticMatch(t *testing.T) {
	t.Parallel()

	m := New()
	terms := []string{"Istanbul", "Ankara", "Izmir"}

	corrected, conf, matched := m.Match("istambul", terms)
	if !matched {
		t.Fatal("expected phonetic match for istambul")
	}
	if corrected != "Istanbul" {
		t.Fatalf("corrected = %q, want Istanbul", corrected)
	}
	if conf < 0.70 {
		t.Fatalf("confidence = %v, want >= 0.70", conf)
	}
}

func TestMatcherNoMatchForDissimilar(t *testing.T) {
	t.Parallel()

	m := New()
	corrected, conf, matched := m.Match("weather", []string{"Istanbul", "Ankara"})
	if matched {
		t.Fatalf("unexpected match: %q (conf %v)", corrected, conf)
	}
	if corrected != "weather" || conf != 0 {
		t.Fatalf("unmatched input must pass through unchanged, got %q conf %v", corrected, conf)
	}
}

func TestMatcherMultiWordTerm(t *testing.T) {
	t.Parallel()

	m := New()
	corrected, _, matched := m.Match("mashin translation", []string{"machine translation"})
	if !matched {
		t.Fatal("expected match for multi-word term")
	}
	if corrected != "machine translation" {
		t.Fatalf("corrected = %q, want machine translation", corrected)
	}
}

func TestMatcherEmptyInputs(t *testing.T) {
	t.Parallel()

	m := New()
	if _, _, matched := m.Match("", []string{"Istanbul"}); matched {
		t.Fatal("empty word must not match")
	}
	if _, _, matched := m.Match("istanbul", nil); matched {
		t.Fatal("empty glossary must not match")
	}
}

func TestMatcherThresholdOption(t *testing.T) {
	t.Parallel()

	// An impossibly high threshold rejects everything.
	m := New(WithPhoneticThreshold(1.1), WithFuzzyThreshold(1.1))
	if _, _, matched := m.Match("istambul", []string{"Istanbul"}); matched {
		t.Fatal("expected no match above threshold 1.1")
	}
}
