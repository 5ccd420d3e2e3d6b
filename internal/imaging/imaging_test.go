package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPreprocessBoundsLargePage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4000, 3000))
	out := Preprocess(src)
	if out.Bounds().Dx() != 2000 || out.Bounds().Dy() != 1500 {
		t.Fatalf("got %dx%d, want 2000x1500", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestPreprocessKeepsSmallPage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 800, 600))
	out := Preprocess(src)
	if out.Bounds().Dx() != 800 || out.Bounds().Dy() != 600 {
		t.Fatalf("got %dx%d, want 800x600", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestPrepareRegionUpscales(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 300, 200))
	out := PrepareRegion(src)
	if out.Bounds().Dy() != 500 || out.Bounds().Dx() != 750 {
		t.Fatalf("got %dx%d, want 750x500", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCropFraction(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 200))
	out := CropFraction(src, 0.50, 0.65, 1, 1)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 70 {
		t.Fatalf("got %dx%d, want 50x70", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestStrips(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 200))
	if top := TopStrip(src, 0.30); top.Bounds().Dy() != 60 {
		t.Fatalf("top strip height = %d, want 60", top.Bounds().Dy())
	}
	if bottom := BottomStrip(src, 0.15); bottom.Bounds().Dy() != 30 {
		t.Fatalf("bottom strip height = %d, want 30", bottom.Bounds().Dy())
	}
}

func TestRotateOSD(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 30, 10))
	src.SetNRGBA(29, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	// Rotate: 90 means the page needs a 90 degree clockwise turn; the
	// top-right marker lands at the bottom-right of the upright image.
	got := RotateOSD(src, 90)
	if got.Bounds().Dx() != 10 || got.Bounds().Dy() != 30 {
		t.Fatalf("got %dx%d, want 10x30", got.Bounds().Dx(), got.Bounds().Dy())
	}
	if r, _, _, _ := got.At(9, 29).RGBA(); r == 0 {
		t.Fatalf("marker pixel not at (9,29) after rotation")
	}

	if got := RotateOSD(src, 180); got.Bounds().Dx() != 30 || got.Bounds().Dy() != 10 {
		t.Fatalf("180 rotation changed dimensions to %v", got.Bounds())
	}
	if got := RotateOSD(src, 0); got != image.Image(src) {
		t.Fatalf("zero rotation must return the input unchanged")
	}
	if got := RotateOSD(src, 45); got != image.Image(src) {
		t.Fatalf("unsupported angle must return the input unchanged")
	}
}

func TestSaveTempRoundTrip(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	src.SetGray(3, 4, color.Gray{Y: 200})

	path, err := SaveTemp(src, "scansort-test-*.png")
	if err != nil {
		t.Fatalf("SaveTemp: %v", err)
	}
	defer os.Remove(path)

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Bounds().Dx() != 10 || back.Bounds().Dy() != 10 {
		t.Fatalf("got %v, want 10x10", back.Bounds())
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	img := pngBytes(t)

	for _, name := range []string{"b_10.png", "b_2.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), img, 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// Extensionless image is picked up by magic bytes.
	if err := os.WriteFile(filepath.Join(dir, "scan_raw"), img, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	want := []string{
		filepath.Join(dir, "b_2.png"),
		filepath.Join(dir, "b_10.png"),
		filepath.Join(dir, "scan_raw"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIsPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.bin")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n%junk\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsPDF(path) {
		t.Fatalf("magic-byte PDF not detected")
	}
	if IsPDF(filepath.Join(dir, "missing.bin")) {
		t.Fatalf("missing file reported as PDF")
	}
}
