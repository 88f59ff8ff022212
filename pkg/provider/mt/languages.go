package mt

import "strings"

// FallbackCode is the canonical code used when a language name is not
// recognized.
const FallbackCode = "eng_Latn"

// languageCodes maps lowercase language names and short codes to FLORES-200
// canonical codes.
var languageCodes = map[string]string{
	"english":    "eng_Latn",
	"en":         "eng_Latn",
	"spanish":    "spa_Latn",
	"es":         "spa_Latn",
	"turkish":    "tur_Latn",
	"tr":         "tur_Latn",
	"portuguese": "por_Latn",
	"pt":         "por_Latn",
	"korean":     "kor_Hang",
	"ko":         "kor_Hang",
	"chinese":    "zho_Hans",
	"mandarin":   "zho_Hans",
	"zh":         "zho_Hans",
	"farsi":      "pes_Arab",
	"persian":    "pes_Arab",
	"fa":         "pes_Arab",
	"russian":    "rus_Cyrl",
	"ru":         "rus_Cyrl",
}

// CanonicalCode resolves a language name or short code to its canonical
// FLORES-200 code. Unknown languages resolve to FallbackCode with ok=false so
// callers can log the substitution.
func CanonicalCode(lang string) (code string, ok bool) {
	key := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageCodes[key]; ok {
		return code, true
	}
	// Already-canonical codes pass through.
	for _, c := range languageCodes {
		if strings.EqualFold(c, key) {
			return c, true
		}
	}
	return FallbackCode, false
}

// SameLanguage reports whether two language names resolve to the same
// canonical code.
func SameLanguage(a, b string) bool {
	ca, _ := CanonicalCode(a)
	cb, _ := CanonicalCode(b)
	return ca == cb
}
