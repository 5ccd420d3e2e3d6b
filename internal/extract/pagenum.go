package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Explicit page phrases, Slovenian first. The trailing guard on the N/M form
// keeps it from firing inside slash-separated dates.
var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bstran\s*[:.]?\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bstr\s*\.\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bpage\s*[:.]?\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bp\s*\.\s*(\d{1,3})\b`),
}

var pageOfPattern = regexp.MustCompile(`\b(\d{1,3})\s*/\s*(\d{1,3})(?:[^\d/]|$)`)

// PageNumber returns an explicitly printed page number, or 0 when the text
// carries none. Callers fall back to word-level OCR of the footer strip.
func PageNumber(text string) int {
	for _, re := range pagePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				return n
			}
		}
	}
	if m := pageOfPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		if n >= 1 && n <= total {
			return n
		}
	}
	return 0
}

// LastIsolatedNumber picks the last token that is nothing but 1-3 digits,
// the way a bare page number prints in a footer. Zero when none qualifies.
func LastIsolatedNumber(tokens []string) int {
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := strings.TrimSpace(tokens[i])
		if tok == "" || len(tok) > 3 || !allDigits(tok) {
			continue
		}
		n, _ := strconv.Atoi(tok)
		if n >= 1 {
			return n
		}
	}
	return 0
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
