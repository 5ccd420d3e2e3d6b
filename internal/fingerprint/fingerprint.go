package fingerprint

import (
	"encoding/hex"
	"image"
	"math/bits"

	imglib "github.com/disintegration/imaging"
)

// DefaultGrid gives 256-bit fingerprints, 64 hex digits.
const DefaultGrid = 16

// AverageHash reduces src to a grid x grid grayscale thumbnail and emits one
// bit per cell, 1 when the cell is at least as bright as the thumbnail mean.
// Bits pack MSB-first in row-major order and encode as lowercase hex.
func AverageHash(src image.Image, grid int) string {
	if grid <= 0 {
		grid = DefaultGrid
	}
	thumb := imglib.Grayscale(imglib.Resize(src, grid, grid, imglib.Lanczos))

	var sum uint64
	for y := 0; y < grid; y++ {
		for x := 0; x < grid; x++ {
			sum += uint64(thumb.NRGBAAt(x, y).R)
		}
	}
	mean := uint8(sum / uint64(grid*grid))

	packed := make([]byte, (grid*grid+7)/8)
	for y := 0; y < grid; y++ {
		for x := 0; x < grid; x++ {
			if thumb.NRGBAAt(x, y).R >= mean {
				i := y*grid + x
				packed[i/8] |= 1 << (7 - uint(i%8))
			}
		}
	}
	return hex.EncodeToString(packed)
}

// Hamming counts differing bits between two hex fingerprints. Hashes that
// cannot be compared (bad hex, different lengths) are maximally distant.
func Hamming(a, b string) int {
	ab, errA := hex.DecodeString(a)
	bb, errB := hex.DecodeString(b)
	if errA != nil || errB != nil || len(ab) != len(bb) {
		return maxDistance(a, b)
	}
	d := 0
	for i := range ab {
		d += bits.OnesCount8(ab[i] ^ bb[i])
	}
	return d
}

func maxDistance(a, b string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	return n * 4
}
