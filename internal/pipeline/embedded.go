package pipeline

import (
	"strings"
	"time"

	"github.com/local/scansort/internal/extract"
	"github.com/local/scansort/internal/metrics"
)

// RecordFromText builds a page record for an input that already carries its
// own text, so recognition is skipped entirely. Image-bound fields (the
// visual hash, the rendered PDF) stay empty; such records never join an
// existing bucket. nowFn is for tests, nil means time.Now.
func RecordFromText(path, text string, nowFn func() time.Time) PageRecord {
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()

	date, found := extract.Date(text, now)
	fromFallback := false
	if !found {
		date = extract.FormatDate(now)
		fromFallback = true
		metrics.ExtractionSentinel("date")
	}

	docType, title := extract.DocType(text)
	signatory := extract.Signatory(text)
	parties := strings.Join(extract.Parties(text), "+")
	headerSig := extract.HeaderSignature(text)

	return PageRecord{
		ImagePath:        path,
		Text:             text,
		ExtractedDate:    date,
		DateFromFallback: fromFallback,
		DocumentType:     docType,
		DocumentTitle:    title,
		Parties:          parties,
		SignatoryName:    signatory,
		HeaderSignature:  headerSig,
		PageNumber:       extract.PageNumber(text),
		GroupKey:         BuildGroupKey(docType, title, parties, signatory, headerSig),
	}
}
