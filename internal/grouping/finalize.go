package grouping

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/scansort/internal/fsutil"
	"github.com/local/scansort/internal/metrics"
	"github.com/local/scansort/internal/pdfmerge"
	"github.com/local/scansort/internal/pipeline"
)

// Folder names are bounded so deep titles cannot overflow path limits.
const maxFolderRunes = 120

// Summary describes one finalized document.
type Summary struct {
	Key       string
	Folder    string
	MergedPDF string
	Pages     int
}

// Finalize writes one bucket to disk: a folder under baseDir named from the
// group key, the merged document PDF inside it, and the member images moved
// in. Page PDFs move along when keepPagePDFs is set, otherwise they are
// removed. The merge happens first, so a failed bucket leaves its sources
// untouched.
func Finalize(b *Bucket, baseDir string, keepPagePDFs bool) (Summary, error) {
	sortBucket(b)

	name := fsutil.TruncateRunes(fsutil.Sanitize(b.Key), maxFolderRunes)
	folder := fsutil.EnsureUnique(filepath.Join(baseDir, name))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return Summary{}, &pipeline.FSError{Op: "create document folder", Path: folder, Err: err}
	}

	pdfs := make([]string, 0, len(b.Records))
	for _, rec := range b.Records {
		if rec.RenderedPDFPath != "" {
			pdfs = append(pdfs, rec.RenderedPDFPath)
		}
	}

	merged := filepath.Join(folder, filepath.Base(folder)+".pdf")
	pages, err := pdfmerge.Merge(pdfs, merged)
	if err != nil {
		return Summary{}, &pipeline.FSError{Op: "merge document", Path: merged, Err: err}
	}

	for _, rec := range b.Records {
		dst := fsutil.EnsureUnique(filepath.Join(folder, filepath.Base(rec.ImagePath)))
		if err := fsutil.Move(rec.ImagePath, dst); err != nil {
			return Summary{}, &pipeline.FSError{Op: "move page image", Path: rec.ImagePath, Err: err}
		}
		if rec.RenderedPDFPath == "" {
			continue
		}
		if keepPagePDFs {
			dst := fsutil.EnsureUnique(filepath.Join(folder, filepath.Base(rec.RenderedPDFPath)))
			if err := fsutil.Move(rec.RenderedPDFPath, dst); err != nil {
				return Summary{}, &pipeline.FSError{Op: "move page pdf", Path: rec.RenderedPDFPath, Err: err}
			}
		} else {
			os.Remove(rec.RenderedPDFPath)
		}
	}

	metrics.ObserveBucketPages(len(b.Records))
	log.Info().Str("folder", filepath.Base(folder)).Int("pages", pages).Msg("document finalized")
	return Summary{Key: b.Key, Folder: folder, MergedPDF: merged, Pages: pages}, nil
}
