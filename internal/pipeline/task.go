package pipeline

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/scansort/internal/extract"
	"github.com/local/scansort/internal/fingerprint"
	"github.com/local/scansort/internal/fsutil"
	"github.com/local/scansort/internal/imaging"
	"github.com/local/scansort/internal/metrics"
	"github.com/local/scansort/internal/ocr"
)

// Engine is the recognizer surface the pipeline needs. *ocr.Engine
// satisfies it; tests plug in a stub.
type Engine interface {
	Text(ctx context.Context, imgPath string, o ocr.Options) (string, error)
	PDF(ctx context.Context, imgPath, outStem string, o ocr.Options) (string, error)
	Words(ctx context.Context, imgPath string, o ocr.Options) ([]ocr.Word, error)
	Detect(ctx context.Context, imgPath string) (ocr.OSD, error)
}

// TaskConfig is the immutable parameter snapshot each page runs under.
type TaskConfig struct {
	Lang           string
	ExtraArgs      []string
	HashGrid       int
	HeaderFraction float64 // top strip for the visual fingerprint
	FooterFraction float64 // bottom strip for the page-number retry
	TextOnly       bool    // skip the searchable-PDF render
	Now            func() time.Time
}

func (c TaskConfig) withDefaults() TaskConfig {
	if c.Lang == "" {
		c.Lang = "slv"
	}
	if c.HashGrid <= 0 {
		c.HashGrid = fingerprint.DefaultGrid
	}
	if c.HeaderFraction <= 0 || c.HeaderFraction > 1 {
		c.HeaderFraction = 0.20
	}
	if c.FooterFraction <= 0 || c.FooterFraction > 1 {
		c.FooterFraction = 0.15
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c TaskConfig) baseOptions() ocr.Options {
	return ocr.Options{Lang: c.Lang, PSM: 6, OEM: 1, Extra: c.ExtraArgs}
}

// ProcessPage runs the full per-page flow: decode, preprocess, orientation,
// recognition, field extraction with the targeted date retry, the header
// fingerprint, and a searchable single-page PDF next to the source. A
// failure is returned as data so the batch never stops.
func ProcessPage(ctx context.Context, eng Engine, imgPath string, cfg TaskConfig) Result {
	cfg = cfg.withDefaults()
	start := time.Now()

	rec, err := processPage(ctx, eng, imgPath, cfg)
	elapsed := time.Since(start)
	if err != nil {
		kind := Classify(err)
		metrics.PageProcessed("failed")
		metrics.Failure(kind)
		log.Warn().Err(err).Str("image", imgPath).Str("kind", kind).Msg("page failed")
		return Result{Failure: &Failure{ImagePath: imgPath, Error: err.Error(), Kind: kind, Elapsed: elapsed}}
	}
	rec.Elapsed = elapsed
	metrics.PageProcessed("ok")
	log.Info().
		Str("image", filepath.Base(imgPath)).
		Str("date", rec.ExtractedDate).
		Str("type", rec.DocumentType).
		Int("page", rec.PageNumber).
		Dur("elapsed", elapsed).
		Msg("page processed")
	return Result{Record: rec}
}

func processPage(ctx context.Context, eng Engine, imgPath string, cfg TaskConfig) (PageRecord, error) {
	src, err := imaging.Load(imgPath)
	if err != nil {
		return PageRecord{}, &InputError{Path: imgPath, Err: err}
	}
	page := imaging.Preprocess(src)

	pagePath, err := imaging.SaveTemp(page, "scansort-page-*.png")
	if err != nil {
		return PageRecord{}, &FSError{Op: "write temp page", Path: imgPath, Err: err}
	}
	defer func() { os.Remove(pagePath) }()

	// Orientation is best effort: detection failures never fail the page.
	// The original image turns with the OCR input so the PDF raster layer
	// stays upright too.
	rasterPath := imgPath
	metrics.OCRInvocation("osd")
	if osd, derr := eng.Detect(ctx, pagePath); derr == nil && osd.Rotate != 0 {
		page = imaging.RotateOSD(page, osd.Rotate)
		src = imaging.RotateOSD(src, osd.Rotate)
		os.Remove(pagePath)
		pagePath, err = imaging.SaveTemp(page, "scansort-page-*.png")
		if err != nil {
			return PageRecord{}, &FSError{Op: "write rotated page", Path: imgPath, Err: err}
		}
		rasterPath, err = imaging.SaveTemp(src, "scansort-upright-*.png")
		if err != nil {
			return PageRecord{}, &FSError{Op: "write upright original", Path: imgPath, Err: err}
		}
		defer func() { os.Remove(rasterPath) }()
		log.Debug().Int("rotate", osd.Rotate).Str("image", filepath.Base(imgPath)).Msg("page turned upright")
	}

	metrics.OCRInvocation("text")
	tText := time.Now()
	text, err := eng.Text(ctx, pagePath, cfg.baseOptions())
	metrics.ObserveOCRDuration("text", time.Since(tText).Seconds())
	if err != nil {
		return PageRecord{}, &EngineError{Mode: "text", Err: err}
	}

	now := cfg.Now()
	date, found := extract.Date(text, now)
	fromFallback := false
	if !found {
		date, found = dateFromRegions(ctx, eng, page, cfg)
		if !found {
			date = extract.FormatDate(now)
			fromFallback = true
			metrics.ExtractionSentinel("date")
		}
	}

	docType, title := extract.DocType(text)
	if docType == extract.UnknownType {
		metrics.ExtractionSentinel("document_type")
	}
	if title == extract.UnknownTitle {
		metrics.ExtractionSentinel("title")
	}
	signatory := extract.Signatory(text)
	if signatory == extract.UnknownName {
		metrics.ExtractionSentinel("signatory")
	}
	parties := strings.Join(extract.Parties(text), "+")
	headerSig := extract.HeaderSignature(text)

	pageNum := extract.PageNumber(text)
	if pageNum == 0 {
		pageNum = pageNumberFromFooter(ctx, eng, page, cfg)
	}

	hash := fingerprint.AverageHash(imaging.TopStrip(page, cfg.HeaderFraction), cfg.HashGrid)

	var pdfPath string
	if !cfg.TextOnly {
		pdfPath, err = renderPDF(ctx, eng, rasterPath, imgPath, date, entityToken(signatory, parties), cfg)
		if err != nil {
			return PageRecord{}, err
		}
	}

	return PageRecord{
		ImagePath:        imgPath,
		RenderedPDFPath:  pdfPath,
		Text:             text,
		ExtractedDate:    date,
		DateFromFallback: fromFallback,
		DocumentType:     docType,
		DocumentTitle:    title,
		Parties:          parties,
		SignatoryName:    signatory,
		HeaderSignature:  headerSig,
		HeaderVisualHash: hash,
		PageNumber:       pageNum,
		GroupKey:         BuildGroupKey(docType, title, parties, signatory, headerSig),
	}, nil
}

// pageNumberFromFooter re-reads the bottom strip word by word and takes the
// last isolated 1-3 digit token, the way bare footer numbers print.
func pageNumberFromFooter(ctx context.Context, eng Engine, page image.Image, cfg TaskConfig) int {
	strip := imaging.PrepareRegion(imaging.BottomStrip(page, cfg.FooterFraction))
	path, err := imaging.SaveTemp(strip, "scansort-footer-*.png")
	if err != nil {
		return 0
	}
	defer os.Remove(path)

	metrics.OCRInvocation("tsv")
	words, err := eng.Words(ctx, path, cfg.baseOptions())
	if err != nil {
		return 0
	}
	return extract.LastIsolatedNumber(ocr.Texts(words))
}

// renderPDF writes the searchable single-page PDF next to the source image,
// named DD-MM-YYYY_<entity>_<stem>.pdf, collision free. The raster layer
// comes from the unprocessed image so the PDF keeps the scan's appearance.
func renderPDF(ctx context.Context, eng Engine, rasterPath, imgPath, date, entity string, cfg TaskConfig) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(imgPath), filepath.Ext(imgPath))
	name := fsutil.Sanitize(date + "_" + entity + "_" + stem)
	outPath := fsutil.EnsureUnique(filepath.Join(filepath.Dir(imgPath), name) + ".pdf")
	outStem := strings.TrimSuffix(outPath, ".pdf")

	metrics.OCRInvocation("pdf")
	tPDF := time.Now()
	pdfPath, err := eng.PDF(ctx, rasterPath, outStem, cfg.baseOptions())
	metrics.ObserveOCRDuration("pdf", time.Since(tPDF).Seconds())
	if err != nil {
		return "", &EngineError{Mode: "pdf", Err: err}
	}
	return pdfPath, nil
}

func entityToken(signatory, parties string) string {
	if signatory != "" && signatory != extract.UnknownName {
		return signatory
	}
	if parties != "" {
		first, _, _ := strings.Cut(parties, "+")
		return first
	}
	return extract.UnknownName
}
