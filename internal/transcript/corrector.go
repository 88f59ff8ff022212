// Package transcript corrects recognized text against a configured glossary
// before it reaches translation. Speech recognition reliably garbles proper
// nouns and domain vocabulary; aligning them here means every target language
// receives the corrected form.
package transcript

import "strings"

// Correction records a single glossary substitution applied to a transcript.
type Correction struct {
	// Original is the token span as recognized.
	Original string
	// Corrected is the glossary term that replaced it.
	Corrected string
	// Confidence is the similarity score that justified the substitution.
	Confidence float64
}

// Matcher decides whether a word or phrase should be replaced by a glossary
// term. Implementations must be safe for concurrent use.
type Matcher interface {
	// Match returns the glossary term for word, the similarity score, and
	// whether a replacement should be made. When matched is false, corrected
	// equals word unchanged.
	Match(word string, terms []string) (corrected string, confidence float64, matched bool)
}

// Corrector applies glossary corrections to transcript text. It is read-only
// after construction and safe for concurrent use.
type Corrector struct {
	matcher  Matcher
	glossary []string
	maxWords int
}

// NewCorrector builds a Corrector over the given glossary. A nil matcher or
// an empty glossary yields a Corrector whose Correct is a no-op.
func NewCorrector(matcher Matcher, glossary []string) *Corrector {
	return &Corrector{
		matcher:  matcher,
		glossary: glossary,
		maxWords: maxWordCount(glossary),
	}
}

// Correct runs glossary matching over text and returns the corrected text
// together with the substitutions made.
//
// At each token position, n-gram windows are tried from the longest glossary
// term length down to 1, so multi-word terms take precedence over partial
// single-word matches. The cursor advances by the number of tokens consumed.
func (c *Corrector) Correct(text string) (string, []Correction) {
	if c.matcher == nil || len(c.glossary) == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := c.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, conf, ok := c.matcher.Match(window, c.glossary)
			if !ok {
				continue
			}
			if strings.EqualFold(window, term) {
				// Already correct; emit as-is without recording a correction.
				output = append(output, strings.Fields(term)...)
				i += n
				matched = true
				break
			}

			output = append(output, strings.Fields(term)...)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  term,
				Confidence: conf,
			})
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " "), corrections
}

// maxWordCount returns the maximum number of whitespace-separated words in
// any glossary term. Returns 1 when the glossary is empty.
func maxWordCount(terms []string) int {
	max := 1
	for _, t := range terms {
		if n := len(strings.Fields(t)); n > max {
			max = n
		}
	}
	return max
}
