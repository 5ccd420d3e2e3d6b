package ocr

import (
	"strconv"
	"strings"
)

// Word is one recognized token from TSV output, with its bounding box in
// image pixels and the recognizer's confidence (0-100).
type Word struct {
	Text   string
	Conf   float64
	Left   int
	Top    int
	Width  int
	Height int
}

// parseTSV reads tesseract TSV output. Word rows carry level 5; the header,
// structural rows and rows with negative confidence are skipped.
func parseTSV(s string) []Word {
	var words []Word
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 12 || fields[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}
		left, _ := strconv.Atoi(fields[6])
		top, _ := strconv.Atoi(fields[7])
		width, _ := strconv.Atoi(fields[8])
		height, _ := strconv.Atoi(fields[9])
		words = append(words, Word{
			Text:   text,
			Conf:   conf,
			Left:   left,
			Top:    top,
			Width:  width,
			Height: height,
		})
	}
	return words
}

// Texts returns just the token strings, in reading order.
func Texts(words []Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}
