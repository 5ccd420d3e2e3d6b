package imaging

import (
	"fmt"
	"image"
	"os"

	imglib "github.com/disintegration/imaging"
)

const (
	// Full pages are bounded to this longest side before recognition.
	maxPageDim = 2000
	// Cropped regions are upscaled until the short side reaches this.
	minRegionDim = 500
)

// Load decodes an image file.
func Load(path string) (image.Image, error) {
	src, err := imglib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return src, nil
}

// Preprocess prepares a full page for recognition: bound the size, convert
// to grayscale, lift contrast, sharpen.
func Preprocess(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() > maxPageDim || b.Dy() > maxPageDim {
		src = imglib.Fit(src, maxPageDim, maxPageDim, imglib.Lanczos)
	}
	out := imglib.Grayscale(src)
	out = imglib.AdjustContrast(out, 25)
	return imglib.Sharpen(out, 1.0)
}

// PrepareRegion prepares a cropped region for a retry pass. Small crops get
// upscaled so the recognizer has enough pixels, and contrast and sharpening
// go harder than on full pages.
func PrepareRegion(src image.Image) image.Image {
	b := src.Bounds()
	minSide := b.Dx()
	if b.Dy() < minSide {
		minSide = b.Dy()
	}
	if minSide > 0 && minSide < minRegionDim {
		scale := float64(minRegionDim) / float64(minSide)
		w := int(float64(b.Dx())*scale + 0.5)
		src = imglib.Resize(src, w, 0, imglib.Lanczos)
	}
	out := imglib.Grayscale(src)
	out = imglib.AdjustContrast(out, 40)
	return imglib.Sharpen(out, 1.5)
}

// CropFraction cuts the rectangle given as fractions of the image size.
func CropFraction(src image.Image, x0, y0, x1, y1 float64) image.Image {
	b := src.Bounds()
	rect := image.Rect(
		b.Min.X+int(float64(b.Dx())*x0),
		b.Min.Y+int(float64(b.Dy())*y0),
		b.Min.X+int(float64(b.Dx())*x1),
		b.Min.Y+int(float64(b.Dy())*y1),
	)
	return imglib.Crop(src, rect)
}

// TopStrip returns the top fraction of the page, where letterheads sit.
func TopStrip(src image.Image, frac float64) image.Image {
	return CropFraction(src, 0, 0, 1, frac)
}

// BottomStrip returns the bottom fraction, where page numbers print.
func BottomStrip(src image.Image, frac float64) image.Image {
	return CropFraction(src, 0, 1-frac, 1, 1)
}

// RotateOSD turns a page upright per the detector's Rotate value. The
// library rotates counter-clockwise, so the angles mirror.
func RotateOSD(src image.Image, rotate int) image.Image {
	switch rotate {
	case 90:
		return imglib.Rotate270(src)
	case 180:
		return imglib.Rotate180(src)
	case 270:
		return imglib.Rotate90(src)
	}
	return src
}

// SaveTemp writes an image as PNG into the temp dir and returns its path.
// Callers remove the file when done; the cleanup sweep catches leftovers.
func SaveTemp(src image.Image, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	if err := imglib.Encode(f, src, imglib.PNG); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
