package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datePattern describes one recognized date shape. order holds the submatch
// indices of day, month and year for that shape.
type datePattern struct {
	re    *regexp.Regexp
	order [3]int
	yy    bool // two-digit year
	named bool // month given by name
}

// Patterns are tried in order against the whole text. Numeric shapes carry
// word boundaries so they never fire inside longer digit runs.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4})\b`), order: [3]int{1, 2, 3}},
	{re: regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{2})\b`), order: [3]int{1, 2, 3}, yy: true},
	{re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), order: [3]int{3, 2, 1}},
	{re: regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s*([a-z]+)\.?\s+(\d{4})\b`), order: [3]int{1, 2, 3}, named: true},
	{re: regexp.MustCompile(`\b(\d{1,2})\s+(\d{1,2})\s+(\d{4})\b`), order: [3]int{1, 2, 3}},
}

// Slovenian and English month names resolve by their first three letters,
// which also covers inflected forms like "septembra" and abbreviations.
var monthPrefixes = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "maj": 5, "may": 5,
	"jun": 6, "jul": 7, "avg": 8, "aug": 8, "sep": 9,
	"okt": 10, "oct": 10, "nov": 11, "dec": 12,
}

type dateCandidate struct {
	day, month, year, pos int
}

// Date scans text for a document date and returns it as DD-MM-YYYY. Every
// candidate is calendar-checked; among valid candidates the largest year
// wins, ties go to the earliest match position. Returns false when the text
// carries no valid date, so the caller can try the region fallback.
func Date(text string, now time.Time) (string, bool) {
	var cands []dateCandidate
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			c, ok := parseMatch(text, m, p, now)
			if ok {
				cands = append(cands, c)
			}
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.year > best.year || (c.year == best.year && c.pos < best.pos) {
			best = c
		}
	}
	return fmt.Sprintf("%02d-%02d-%04d", best.day, best.month, best.year), true
}

// FormatDate renders t in the same DD-MM-YYYY shape Date produces. Used for
// the fallback-to-today outcome.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d-%02d-%04d", t.Day(), int(t.Month()), t.Year())
}

func parseMatch(text string, m []int, p datePattern, now time.Time) (dateCandidate, bool) {
	group := func(i int) string {
		lo, hi := m[2*i], m[2*i+1]
		if lo < 0 {
			return ""
		}
		return text[lo:hi]
	}
	day, err := strconv.Atoi(group(p.order[0]))
	if err != nil {
		return dateCandidate{}, false
	}
	var month int
	if p.named {
		month = monthFromName(group(p.order[1]))
	} else {
		month, _ = strconv.Atoi(group(p.order[1]))
	}
	year, err := strconv.Atoi(group(p.order[2]))
	if err != nil {
		return dateCandidate{}, false
	}
	if p.yy {
		year = expandYear(year)
	}
	if !validDate(day, month, year, now) {
		return dateCandidate{}, false
	}
	return dateCandidate{day: day, month: month, year: year, pos: m[0]}, true
}

// expandYear maps a two-digit year onto a century: below 50 lands in the
// 2000s, the rest in the 1900s.
func expandYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

func monthFromName(word string) int {
	w := strings.ToLower(word)
	if len(w) < 3 {
		return 0
	}
	return monthPrefixes[w[:3]]
}

// validDate accepts only real calendar days inside [1900, next year].
func validDate(day, month, year int, now time.Time) bool {
	if year < 1900 || year > now.Year()+1 {
		return false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
