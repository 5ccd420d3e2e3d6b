package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/local/scansort/internal/fsutil"
)

// Extensions accepted without content sniffing.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// IsImage reports whether path holds a raster image: known extensions pass
// directly, anything else gets its magic bytes checked.
func IsImage(path string) bool {
	if imageExts[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt.String(), "image/")
}

// IsPDF reports whether path holds a PDF.
func IsPDF(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return mt.Is("application/pdf")
}

// ListImages returns the image files directly inside folder, naturally
// sorted so scan_2 comes before scan_10.
func ListImages(folder string) ([]string, error) {
	return listMatching(folder, IsImage)
}

// ListPDFs returns the PDF files directly inside folder, naturally sorted.
func ListPDFs(folder string) ([]string, error) {
	return listMatching(folder, IsPDF)
}

func listMatching(folder string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read scan folder: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(folder, entry.Name())
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return fsutil.NaturalLess(out[i], out[j]) })
	return out, nil
}
