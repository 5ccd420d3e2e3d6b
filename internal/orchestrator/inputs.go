package orchestrator

import (
    "sort"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/scansort/internal/fsutil"
    "github.com/local/scansort/internal/imaging"
    "github.com/local/scansort/internal/pipeline"
)

// A PDF needs this many embedded characters before we trust its text layer
// over a fresh recognition pass.
const minTextLayerChars = 200

// gatherInputs lists the folder's images and expands PDFs into per-page PNG
// siblings so scanned PDFs flow through the same pipeline as loose images.
// With splitTextPDFs set, PDFs that already carry a text layer are returned
// separately instead of rasterized; OCR would only degrade them. A PDF that
// cannot be rasterized becomes a per-item failure, never a run failure.
func (r *Runner) gatherInputs(folder string, splitTextPDFs bool) (images, textPDFs []string, failed []pipeline.Failure, err error) {
    images, err = imaging.ListImages(folder)
    if err != nil { return nil, nil, nil, err }
    pdfs, err := imaging.ListPDFs(folder)
    if err != nil { return nil, nil, nil, err }

    for _, pdf := range pdfs {
        if splitTextPDFs && imaging.HasTextLayer(pdf, minTextLayerChars) {
            log.Info().Str("pdf", pdf).Msg("text layer found, skipping raster OCR")
            textPDFs = append(textPDFs, pdf)
            continue
        }
        start := time.Now()
        pages, rerr := imaging.RasterPDF(pdf, r.cfg.RenderDPI)
        if rerr != nil {
            log.Warn().Err(rerr).Str("pdf", pdf).Msg("pdf rasterization failed")
            failed = append(failed, pipeline.Failure{
                ImagePath: pdf,
                Error:     rerr.Error(),
                Kind:      "input",
                Elapsed:   time.Since(start),
            })
            continue
        }
        images = append(images, pages...)
    }

    sort.Slice(images, func(i, j int) bool { return fsutil.NaturalLess(images[i], images[j]) })
    return images, textPDFs, failed, nil
}
