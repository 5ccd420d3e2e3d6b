package extract

import (
	"regexp"
	"sort"

	"github.com/local/scansort/internal/textnorm"
)

// Organization names end in a legal suffix. The dotted Slovenian forms
// (d.o.o., d.d., s.p., d.n.o., k.d.) appear with and without spaces between
// the dots; one to four capitalized words before the suffix form the name.
var orgPattern = regexp.MustCompile(`((?:[\p{Lu}\d][\p{L}\d&.-]*\s+){1,4}(?i:d\s*\.\s*o\s*\.\s*o\s*\.?|d\s*\.\s*n\s*\.\s*o\s*\.?|d\s*\.\s*d\s*\.?|s\s*\.\s*p\s*\.?|k\s*\.\s*d\s*\.?|ltd\.?|llc|gmbh))(?:[^\p{L}\d]|$)`)

// Parties extracts up to two organization names from text. Hits are
// normalized, deduplicated and sorted, so the same pair of parties always
// yields the same key component no matter where OCR found them.
func Parties(text string) []string {
	matches := orgPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		norm := textnorm.Normalize(m[1])
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	sort.Strings(out)
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}
