package extract

import (
	"regexp"

	"github.com/local/scansort/internal/textnorm"
)

// Sentinels for fields no heuristic could resolve. They are ordinary values,
// never errors: an unclassified page still gets processed and grouped.
const (
	UnknownType  = "UNKNOWN"
	UnknownTitle = "unknown title"
	UnknownName  = "unknown name"
)

// Document classes in priority order; the first label whose keyword matches
// wins. Keywords carry Slovenian and English forms, stemmed so inflections
// match, with [čc] alternates for OCR output that lost its diacritics.
var docTypes = []struct {
	Label string
	re    *regexp.Regexp
}{
	{"contract", regexp.MustCompile(`(?i)\b(pogodb|contract)`)},
	{"invoice", regexp.MustCompile(`(?i)\b(ra[čc]un|faktur|invoice)`)},
	{"offer", regexp.MustCompile(`(?i)\b(ponudb|predra[čc]un|offer)`)},
	{"purchase-order", regexp.MustCompile(`(?i)\b(naro[čc]iln|naro[čc]ilo|purchase\s+order)`)},
	{"delivery-note", regexp.MustCompile(`(?i)\b(dobavnic|delivery\s+note)`)},
	{"decision", regexp.MustCompile(`(?i)\b(sklep|decision)`)},
	{"resolution", regexp.MustCompile(`(?i)\b(odlo[čc]b|resolution)`)},
	{"confirmation", regexp.MustCompile(`(?i)\b(potrdil|confirmation)`)},
	{"notice", regexp.MustCompile(`(?i)\b(obvestil|notice)`)},
	{"declaration", regexp.MustCompile(`(?i)\b(izjav|declaration)`)},
}

// DocType classifies text into one of the fixed document classes and picks
// the title line. The first 20 non-empty lines are searched first; a keyword
// found only deeper in the text still classifies the document but yields the
// title sentinel, since the line is no header.
func DocType(text string) (label, title string) {
	head := FirstNonEmptyLines(text, 20)
	for _, dt := range docTypes {
		for _, line := range head {
			if dt.re.MatchString(line) {
				return dt.Label, textnorm.Normalize(line)
			}
		}
	}
	for _, dt := range docTypes {
		if dt.re.MatchString(text) {
			return dt.Label, UnknownTitle
		}
	}
	return UnknownType, UnknownTitle
}
