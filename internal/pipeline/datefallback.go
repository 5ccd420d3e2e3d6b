package pipeline

import (
	"context"
	"image"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/local/scansort/internal/extract"
	"github.com/local/scansort/internal/imaging"
	"github.com/local/scansort/internal/metrics"
	"github.com/local/scansort/internal/ocr"
)

// Crop regions tried for the date retry, in fixed priority order, as
// fractions of the page. Dates print bottom-right on most of this paperwork.
var dateRegions = []struct {
	Name           string
	X0, Y0, X1, Y1 float64
}{
	{"bottom-right", 0.50, 0.65, 1, 1},
	{"top-right", 0.55, 0, 1, 0.30},
	{"bottom-left", 0, 0.65, 0.50, 1},
	{"center-bottom", 0.25, 0.55, 0.75, 0.90},
}

// Engine configs tried per region, loosest last. The final pass restricts
// the character set to what a date can contain.
var dateLadder = []ocr.Options{
	{PSM: 6},
	{PSM: 8},
	{PSM: 13},
	{PSM: 7, Whitelist: "0123456789abcdefghijklmnopqrstuvwxyz.-/ "},
}

// dateFromRegions re-reads the likely date corners with progressively looser
// engine configs. The first fragment yielding a valid date wins.
func dateFromRegions(ctx context.Context, eng Engine, page image.Image, cfg TaskConfig) (string, bool) {
	for _, region := range dateRegions {
		crop := imaging.PrepareRegion(imaging.CropFraction(page, region.X0, region.Y0, region.X1, region.Y1))
		path, err := imaging.SaveTemp(crop, "scansort-region-*.png")
		if err != nil {
			continue
		}
		metrics.DateFallbackAttempt(region.Name)

		for _, opt := range dateLadder {
			opt.Lang = cfg.Lang
			opt.Extra = cfg.ExtraArgs
			metrics.OCRInvocation("text")
			fragment, err := eng.Text(ctx, path, opt)
			if err != nil {
				continue
			}
			if date, ok := extract.Date(fragment, cfg.Now()); ok {
				os.Remove(path)
				metrics.DateFallbackHit(region.Name)
				log.Debug().Str("region", region.Name).Int("psm", opt.PSM).Str("date", date).Msg("date recovered from region")
				return date, true
			}
		}
		os.Remove(path)
	}
	return "", false
}
