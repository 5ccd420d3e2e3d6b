package textnorm

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, collapses whitespace runs into single spaces and
// strips every rune that is not a letter, digit, space, period or hyphen.
// Letters are Unicode letters, so diacritics from OCR output survive.
// Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if b.Len() > 0 {
				pendingSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
