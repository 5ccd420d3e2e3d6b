package imaging

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// PDFText pulls the embedded text layer from a PDF, all pages joined.
func PDFText(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Str("pdf", pdfPath).Msg("text layer read failed")
			continue
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// HasTextLayer reports whether a PDF already carries enough embedded text to
// skip recognition.
func HasTextLayer(pdfPath string, minChars int) bool {
	text, err := PDFText(pdfPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(text)) >= minChars
}
