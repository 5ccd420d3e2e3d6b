package pdfmerge

import (
    "fmt"
    "os"
    "path/filepath"

    "github.com/pdfcpu/pdfcpu/pkg/api"
    "github.com/rs/zerolog/log"
)

// PageCount returns the page count of one PDF.
func PageCount(path string) (int, error) {
    n, err := api.PageCountFile(path)
    if err != nil { return 0, fmt.Errorf("pdf page count failed: %w", err) }
    return n, nil
}

// Merge concatenates single-page PDFs into outPath, preserving input order,
// verifies the result holds exactly the sum of the input pages, and returns
// that count.
func Merge(inFiles []string, outPath string) (int, error) {
    if len(inFiles) == 0 { return 0, fmt.Errorf("nothing to merge") }

    wantPages := 0
    for _, f := range inFiles {
        n, err := PageCount(f)
        if err != nil { return 0, fmt.Errorf("merge input %s: %w", filepath.Base(f), err) }
        wantPages += n
    }

    if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
        return 0, fmt.Errorf("create merge output dir: %w", err)
    }
    if err := api.MergeCreateFile(inFiles, outPath, false, nil); err != nil {
        return 0, fmt.Errorf("pdf merge failed: %w", err)
    }

    got, err := PageCount(outPath)
    if err != nil { return 0, fmt.Errorf("merged pdf unreadable: %w", err) }
    if got != wantPages {
        return 0, fmt.Errorf("merged pdf has %d pages, want %d", got, wantPages)
    }

    log.Debug().Int("pages", got).Int("inputs", len(inFiles)).Str("out", filepath.Base(outPath)).Msg("merged document pdf")
    return got, nil
}
