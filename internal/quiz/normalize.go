package quiz

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds an answer for comparison: accents and case are dropped,
// punctuation is ignored and whitespace collapsed. "Wéi geet et?" and
// "wei geet et" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			space = true
		}
	}
	return b.String()
}

// Matches reports whether answer is acceptable for expected. Alternatives
// in expected may be separated by "/" or ";".
func Matches(answer, expected string) bool {
	got := Normalize(answer)
	if got == "" {
		return false
	}
	for _, alt := range strings.FieldsFunc(expected, func(r rune) bool { return r == '/' || r == ';' }) {
		if Normalize(alt) == got {
			return true
		}
	}
	return false
}
