package extract

import (
	"regexp"
	"strings"

	"github.com/local/scansort/internal/textnorm"
)

// Phrases that introduce a signer near a signature block.
var indicatorPhrases = []string{
	"ime in priimek", "podpisnik", "direktor", "zastopnik",
	"name and surname", "signatory", "director", "signed by",
}

// Name shapes: two or three capitalized words (Unicode-aware, so diacritics
// match), or two all-caps words of at least two letters each.
var nameShapes = []*regexp.Regexp{
	regexp.MustCompile(`(\p{Lu}\p{Ll}+)\s+(\p{Lu}\p{Ll}+)(?:\s+(\p{Lu}\p{Ll}+))?`),
	regexp.MustCompile(`(\p{Lu}{2,})\s+(\p{Lu}{2,})`),
}

// Signatory finds a person name in recognized text. Indicator phrases in the
// opening lines are tried first (text after a colon, otherwise the following
// line), then a direct scan of the first 15 lines, then the closing 8 lines
// where signatures usually sit. Returns the sentinel when nothing matches.
func Signatory(text string) string {
	lines := FirstNonEmptyLines(text, 20)
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, phrase := range indicatorPhrases {
			if !strings.Contains(lower, phrase) {
				continue
			}
			if idx := strings.Index(line, ":"); idx >= 0 {
				if name := nameFrom(line[idx+1:]); name != "" {
					return name
				}
			} else if i+1 < len(lines) {
				if name := nameFrom(lines[i+1]); name != "" {
					return name
				}
			}
		}
	}
	for _, line := range FirstNonEmptyLines(text, 15) {
		if name := nameFrom(line); name != "" {
			return name
		}
	}
	for _, line := range LastNonEmptyLines(text, 8) {
		if name := nameFrom(line); name != "" {
			return name
		}
	}
	return UnknownName
}

// nameFrom applies the name shapes to s and composes the underscore-joined
// token. Three groups join as first_third_second, matching how signature
// blocks print surname first.
func nameFrom(s string) string {
	for _, re := range nameShapes {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		parts := m[1:]
		if len(parts) == 3 && parts[2] != "" {
			return textnorm.Normalize(parts[0]) + "_" + textnorm.Normalize(parts[2]) + "_" + textnorm.Normalize(parts[1])
		}
		return textnorm.Normalize(parts[0]) + "_" + textnorm.Normalize(parts[1])
	}
	return ""
}
