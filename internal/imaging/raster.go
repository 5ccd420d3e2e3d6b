package imaging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	imglib "github.com/disintegration/imaging"

	"github.com/local/scansort/internal/fsutil"
)

// RasterPDF renders every page of a PDF into sibling PNGs named
// <stem>_pN.png and returns their paths in page order. The siblings become
// ordinary batch inputs, so multi-page PDF scans flow through the same
// pipeline as loose images.
func RasterPDF(pdfPath string, dpi int) ([]string, error) {
	if dpi <= 0 {
		dpi = 150
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	dir := filepath.Dir(pdfPath)
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))

	paths := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		rendered, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return paths, fmt.Errorf("render pdf page %d: %w", i+1, err)
		}
		out := fsutil.EnsureUnique(filepath.Join(dir, fmt.Sprintf("%s_p%d.png", stem, i+1)))
		if err := imglib.Save(rendered, out); err != nil {
			return paths, fmt.Errorf("save pdf page %d: %w", i+1, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// PDFPages returns the page count of a PDF.
func PDFPages(pdfPath string) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
