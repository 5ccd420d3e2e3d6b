package orchestrator

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "github.com/local/scansort/internal/fsutil"
    "github.com/local/scansort/internal/grouping"
    "github.com/local/scansort/internal/imaging"
    "github.com/local/scansort/internal/metrics"
    "github.com/local/scansort/internal/ocr"
    "github.com/local/scansort/internal/pdfmerge"
    "github.com/local/scansort/internal/pipeline"
    "github.com/local/scansort/internal/report"
)

// RunGroup recognizes every page in folder, extracts the fields, buckets
// pages into documents and finalizes each bucket into a subfolder with a
// merged PDF. The JSON report lands in the folder; its path is returned
// alongside. An empty folder and a run with zero successful pages are both
// overall failures.
func (r *Runner) RunGroup(ctx context.Context, folder string) (*report.Report, string, error) {
    start := time.Now()
    images, _, rasterFails, err := r.gatherInputs(folder, false)
    if err != nil { return nil, "", err }
    if len(images) == 0 && len(rasterFails) == 0 {
        return nil, "", fmt.Errorf("no scannable files in %s", folder)
    }

    rep := report.New(folder, "group", r.cfg.Workers)
    for i := range rasterFails {
        rep.Add(pipeline.Result{Failure: &rasterFails[i]})
    }

    results := pipeline.RunPool(ctx, r.eng, images, r.taskConfig(false), r.cfg.Workers)
    records := make([]pipeline.PageRecord, 0, len(results))
    for _, res := range results {
        rep.Add(res)
        if res.Failure == nil { records = append(records, res.Record) }
    }
    if len(records) == 0 {
        path, _ := rep.Write(folder)
        return rep, path, fmt.Errorf("no page in %s could be processed", folder)
    }

    eng := grouping.New(grouping.Config{HashThreshold: r.cfg.HashDistance})
    for _, rec := range records {
        eng.Assign(rec)
    }
    for _, b := range eng.Buckets() {
        sum, ferr := grouping.Finalize(b, folder, r.cfg.KeepPagePDFs)
        if ferr != nil {
            log.Error().Err(ferr).Str("key", b.Key).Int("pages", len(b.Records)).Msg("document finalize failed")
            continue
        }
        rep.AddDocument(sum.Folder, sum.MergedPDF, sum.Pages)
    }

    metrics.ObserveBatchDuration(time.Since(start).Seconds())
    path, err := rep.Write(folder)
    if err != nil { return rep, "", err }
    log.Info().Str("folder", folder).Int("pages", rep.Succeeded).Int("failed", rep.Failed).
        Int("documents", len(rep.Documents)).Dur("took", time.Since(start)).Msg("group run finished")
    return rep, path, nil
}

// RunText recognizes every page and keeps the result as text: the source is
// renamed to DD-MM-YYYY_<entity><ext> and the recognized text written next
// to it. PDFs with their own text layer skip recognition; the embedded text
// drives the same extraction and naming.
func (r *Runner) RunText(ctx context.Context, folder string) (*report.Report, string, error) {
    start := time.Now()
    images, textPDFs, rasterFails, err := r.gatherInputs(folder, true)
    if err != nil { return nil, "", err }
    if len(images)+len(textPDFs) == 0 && len(rasterFails) == 0 {
        return nil, "", fmt.Errorf("no scannable files in %s", folder)
    }

    rep := report.New(folder, "text", r.cfg.Workers)
    for i := range rasterFails {
        rep.Add(pipeline.Result{Failure: &rasterFails[i]})
    }

    for _, pdf := range textPDFs {
        rep.Add(r.processTextPDF(pdf))
    }

    results := pipeline.RunPool(ctx, r.eng, images, r.taskConfig(true), r.cfg.Workers)
    for _, res := range results {
        if res.Failure == nil {
            res = finishTextItem(res.Record)
        }
        rep.Add(res)
    }
    if rep.Succeeded == 0 {
        path, _ := rep.Write(folder)
        return rep, path, fmt.Errorf("no page in %s could be processed", folder)
    }

    metrics.ObserveBatchDuration(time.Since(start).Seconds())
    path, err := rep.Write(folder)
    if err != nil { return rep, "", err }
    log.Info().Str("folder", folder).Int("pages", rep.Succeeded).Int("failed", rep.Failed).
        Dur("took", time.Since(start)).Msg("text run finished")
    return rep, path, nil
}

// processTextPDF handles a PDF whose embedded text made recognition
// unnecessary. The record is built straight from that text.
func (r *Runner) processTextPDF(pdfPath string) pipeline.Result {
    start := time.Now()
    text, err := imaging.PDFText(pdfPath)
    if err != nil {
        return pipeline.Result{Failure: &pipeline.Failure{
            ImagePath: pdfPath, Error: err.Error(), Kind: "input", Elapsed: time.Since(start),
        }}
    }
    rec := pipeline.RecordFromText(pdfPath, text, nil)
    rec.Elapsed = time.Since(start)
    return finishTextItem(rec)
}

// finishTextItem renames the source to its extracted date and entity and
// drops the text beside it. A rename or write failure turns the page into a
// per-item fs failure so the report stays truthful about what is on disk.
func finishTextItem(rec pipeline.PageRecord) pipeline.Result {
    ext := filepath.Ext(rec.ImagePath)
    name := fsutil.Sanitize(rec.ExtractedDate+"_"+rec.Entity()) + ext
    dst := fsutil.EnsureUnique(filepath.Join(filepath.Dir(rec.ImagePath), name))
    if err := fsutil.Move(rec.ImagePath, dst); err != nil {
        return failedItem(rec, "rename", err)
    }
    txt := strings.TrimSuffix(dst, ext) + ".txt"
    if err := fsutil.WriteFileAtomic(txt, []byte(rec.Text), 0644); err != nil {
        return failedItem(rec, "write text", err)
    }
    rec.ImagePath = dst
    return pipeline.Result{Record: rec}
}

func failedItem(rec pipeline.PageRecord, op string, err error) pipeline.Result {
    fserr := &pipeline.FSError{Op: op, Path: rec.ImagePath, Err: err}
    return pipeline.Result{Failure: &pipeline.Failure{
        ImagePath: rec.ImagePath,
        Error:     fserr.Error(),
        Kind:      pipeline.Classify(fserr),
        Elapsed:   rec.Elapsed,
    }}
}

// RunExport renders every page into a searchable single-page PDF and merges
// them, in natural filename order, into one export PDF inside the folder.
// Nothing is renamed and no fields are extracted; the pages keep their scan
// order. Any page failure aborts the export.
func (r *Runner) RunExport(ctx context.Context, folder, outName string) (string, error) {
    start := time.Now()
    images, _, rasterFails, err := r.gatherInputs(folder, false)
    if err != nil { return "", err }
    if len(rasterFails) > 0 {
        f := rasterFails[0]
        return "", fmt.Errorf("rasterize %s: %s", f.ImagePath, f.Error)
    }
    if len(images) == 0 {
        return "", fmt.Errorf("no scannable files in %s", folder)
    }

    tmpDir, err := os.MkdirTemp("", "scansort-export-")
    if err != nil { return "", err }
    defer os.RemoveAll(tmpDir)

    pagePDFs := make([]string, len(images))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(r.cfg.Workers)
    for i, img := range images {
        g.Go(func() error {
            metrics.OCRInvocation("pdf")
            path, perr := r.exportPage(gctx, img, filepath.Join(tmpDir, fmt.Sprintf("page_%05d", i)))
            if perr != nil {
                return fmt.Errorf("export %s: %w", filepath.Base(img), perr)
            }
            pagePDFs[i] = path
            return nil
        })
    }
    if err := g.Wait(); err != nil { return "", err }

    if outName == "" { outName = "ocr_export.pdf" }
    out := fsutil.EnsureUnique(filepath.Join(folder, fsutil.Sanitize(outName)))
    if _, err := pdfmerge.Merge(pagePDFs, out); err != nil { return "", err }

    metrics.ObserveBatchDuration(time.Since(start).Seconds())
    log.Info().Str("out", out).Int("pages", len(pagePDFs)).Dur("took", time.Since(start)).Msg("export finished")
    return out, nil
}

// exportPage renders one image into a single-page searchable PDF under
// stem. Orientation is fixed first so the embedded raster matches the text
// layer; the image is otherwise left as scanned.
func (r *Runner) exportPage(ctx context.Context, imgPath, outStem string) (string, error) {
    src := imgPath
    if osd, err := r.eng.Detect(ctx, imgPath); err == nil && osd.Rotate != 0 {
        img, lerr := imaging.Load(imgPath)
        if lerr != nil { return "", lerr }
        tmp, serr := imaging.SaveTemp(imaging.RotateOSD(img, osd.Rotate), "scansort-upright-*.png")
        if serr != nil { return "", serr }
        defer os.Remove(tmp)
        src = tmp
    }
    return r.eng.PDF(ctx, src, outStem, r.options())
}

// RunSingle recognizes one image and returns the text, for the menu's
// single-file test.
func (r *Runner) RunSingle(ctx context.Context, imgPath string) (string, error) {
    img, err := imaging.Load(imgPath)
    if err != nil { return "", err }
    tmp, err := imaging.SaveTemp(imaging.Preprocess(img), "scansort-single-*.png")
    if err != nil { return "", err }
    defer os.Remove(tmp)
    metrics.OCRInvocation("text")
    return r.eng.Text(ctx, tmp, r.options())
}

func (r *Runner) options() ocr.Options {
    return ocr.Options{Lang: r.cfg.Lang, Extra: r.cfg.ExtraArgs}
}
