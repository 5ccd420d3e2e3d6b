package pipeline

import (
	"strings"
	"time"

	"github.com/local/scansort/internal/textnorm"
)

// PageRecord is the immutable outcome of one successfully processed page.
type PageRecord struct {
	ImagePath        string
	RenderedPDFPath  string // empty in text-only runs
	Text             string // full recognized text; not serialized into reports
	ExtractedDate    string // DD-MM-YYYY, always set
	DateFromFallback bool   // true when no date was found anywhere
	DocumentType     string
	DocumentTitle    string
	Parties          string // up to two names joined with +, empty when none
	SignatoryName    string
	HeaderSignature  string
	HeaderVisualHash string
	PageNumber       int // 0 when the page prints no number
	GroupKey         string
	Elapsed          time.Duration
}

// Failure is the per-item record of a page that could not be processed.
type Failure struct {
	ImagePath string
	Error     string
	Kind      string
	Elapsed   time.Duration
}

// Result carries either a record or a failure out of the worker pool.
type Result struct {
	Record  PageRecord
	Failure *Failure
}

// Entity picks the token used in artifact names: the signatory when one was
// found, else the first party, else the name sentinel.
func (r PageRecord) Entity() string {
	return entityToken(r.SignatoryName, r.Parties)
}

// BuildGroupKey composes the bucket key from the extracted fields. Each part
// passes through the normalizer, which strips underscores, so the join
// separator is unambiguous and the leading component is always the
// document-type token.
func BuildGroupKey(docType, title, parties, signatory, headerSig string) string {
	partiesOrSig := parties
	if partiesOrSig == "" {
		partiesOrSig = signatory
	}
	return strings.Join([]string{
		textnorm.Normalize(docType),
		textnorm.Normalize(title),
		textnorm.Normalize(partiesOrSig),
		textnorm.Normalize(headerSig),
	}, "_")
}

// LeadingToken returns the document-type component of a group key.
func LeadingToken(key string) string {
	if i := strings.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}
