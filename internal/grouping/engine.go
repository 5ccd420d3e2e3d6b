package grouping

import (
	"math"
	"sort"

	"github.com/local/scansort/internal/fingerprint"
	"github.com/local/scansort/internal/fsutil"
	"github.com/local/scansort/internal/metrics"
	"github.com/local/scansort/internal/pipeline"
)

// Bucket is one detected multi-page document. Key and Hash come from the
// first member and never change; matching always compares against them.
type Bucket struct {
	Key     string
	Hash    string
	Records []pipeline.PageRecord
}

// Config tunes the matcher.
type Config struct {
	HashThreshold int // max Hamming distance to join an existing bucket
}

// Engine accumulates page records into buckets. It runs single threaded
// after the worker pool has drained; it is not safe for concurrent use.
type Engine struct {
	cfg     Config
	buckets []*Bucket
}

func New(cfg Config) *Engine {
	if cfg.HashThreshold <= 0 {
		cfg.HashThreshold = 18
	}
	return &Engine{cfg: cfg}
}

// Assign places rec into the first bucket (creation order) whose first
// member shares the group-key leading token and sits within the hash
// threshold. No match opens a new bucket. Records without a visual hash
// never join an existing bucket.
func (e *Engine) Assign(rec pipeline.PageRecord) *Bucket {
	lead := pipeline.LeadingToken(rec.GroupKey)
	for _, b := range e.buckets {
		if pipeline.LeadingToken(b.Key) != lead {
			continue
		}
		if b.Hash == "" || rec.HeaderVisualHash == "" {
			continue
		}
		if fingerprint.Hamming(b.Hash, rec.HeaderVisualHash) <= e.cfg.HashThreshold {
			b.Records = append(b.Records, rec)
			return b
		}
	}
	b := &Bucket{Key: rec.GroupKey, Hash: rec.HeaderVisualHash, Records: []pipeline.PageRecord{rec}}
	e.buckets = append(e.buckets, b)
	metrics.BucketCreated()
	return b
}

// Buckets returns all buckets in creation order, each sorted by page number
// ascending with unnumbered pages last, ties broken by natural filename
// order.
func (e *Engine) Buckets() []*Bucket {
	for _, b := range e.buckets {
		sortBucket(b)
	}
	return e.buckets
}

func sortBucket(b *Bucket) {
	sort.SliceStable(b.Records, func(i, j int) bool {
		pi, pj := pageSortKey(b.Records[i].PageNumber), pageSortKey(b.Records[j].PageNumber)
		if pi != pj {
			return pi < pj
		}
		return fsutil.NaturalLess(b.Records[i].ImagePath, b.Records[j].ImagePath)
	})
}

func pageSortKey(n int) int {
	if n <= 0 {
		return math.MaxInt32
	}
	return n
}
