package report

import (
    "encoding/json"
    "path/filepath"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/local/scansort/internal/fsutil"
    "github.com/local/scansort/internal/pipeline"
)

// Page is the wire form of one successfully processed page.
type Page struct {
    Image            string   `json:"image"`
    PDF              string   `json:"pdf,omitempty"`
    Date             string   `json:"date"`
    DateFromFallback bool     `json:"date_from_fallback,omitempty"`
    DocumentType     string   `json:"document_type"`
    DocumentTitle    string   `json:"document_title"`
    Parties          []string `json:"parties,omitempty"`
    Signatory        string   `json:"signatory,omitempty"`
    HeaderSignature  string   `json:"header_signature,omitempty"`
    HeaderHash       string   `json:"header_hash,omitempty"`
    PageNumber       int      `json:"page_number,omitempty"`
    GroupKey         string   `json:"group_key,omitempty"`
    ElapsedSeconds   float64  `json:"elapsed_seconds"`
}

// Failure is the wire form of one item that could not be processed.
type Failure struct {
    Image          string  `json:"image"`
    Error          string  `json:"error"`
    Kind           string  `json:"kind"`
    ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Document is one finalized multi-page document.
type Document struct {
    Folder    string `json:"folder"`
    MergedPDF string `json:"merged_pdf"`
    Pages     int    `json:"pages"`
}

// Report collects everything a batch run produced. One is written per run
// into the processed folder.
type Report struct {
    RunID           string     `json:"run_id"`
    Timestamp       time.Time  `json:"timestamp"`
    Folder          string     `json:"folder"`
    Mode            string     `json:"mode"`
    Workers         int        `json:"workers"`
    DurationSeconds float64    `json:"duration_seconds"`
    Processed       int        `json:"processed"`
    Succeeded       int        `json:"succeeded"`
    Failed          int        `json:"failed"`
    Pages           []Page     `json:"pages"`
    Failures        []Failure  `json:"failures,omitempty"`
    Documents       []Document `json:"documents,omitempty"`
}

// New opens a report for one batch run. The timestamp doubles as the run
// start for the duration written at the end.
func New(folder, mode string, workers int) *Report {
    return &Report{
        RunID:     uuid.NewString(),
        Timestamp: time.Now(),
        Folder:    folder,
        Mode:      mode,
        Workers:   workers,
    }
}

// Add records one worker result, success or failure.
func (r *Report) Add(res pipeline.Result) {
    r.Processed++
    if res.Failure != nil {
        r.Failed++
        r.Failures = append(r.Failures, Failure{
            Image:          res.Failure.ImagePath,
            Error:          res.Failure.Error,
            Kind:           res.Failure.Kind,
            ElapsedSeconds: res.Failure.Elapsed.Seconds(),
        })
        return
    }
    rec := res.Record
    r.Succeeded++
    r.Pages = append(r.Pages, Page{
        Image:            rec.ImagePath,
        PDF:              rec.RenderedPDFPath,
        Date:             rec.ExtractedDate,
        DateFromFallback: rec.DateFromFallback,
        DocumentType:     rec.DocumentType,
        DocumentTitle:    rec.DocumentTitle,
        Parties:          splitParties(rec.Parties),
        Signatory:        rec.SignatoryName,
        HeaderSignature:  rec.HeaderSignature,
        HeaderHash:       rec.HeaderVisualHash,
        PageNumber:       rec.PageNumber,
        GroupKey:         rec.GroupKey,
        ElapsedSeconds:   rec.Elapsed.Seconds(),
    })
}

// AddDocument records one finalized multi-page document.
func (r *Report) AddDocument(folder, mergedPDF string, pages int) {
    r.Documents = append(r.Documents, Document{Folder: folder, MergedPDF: mergedPDF, Pages: pages})
}

// Write serializes the report into dir as ocr_report_<YYYYMMDD-HHMMSS>.json
// and returns the final path. The write goes through a temp file so a
// crashed run never leaves a truncated report behind.
func (r *Report) Write(dir string) (string, error) {
    r.DurationSeconds = time.Since(r.Timestamp).Seconds()
    data, err := json.MarshalIndent(r, "", "  ")
    if err != nil { return "", err }
    path := fsutil.EnsureUnique(filepath.Join(dir, fileName(r.Timestamp)))
    if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil { return "", err }
    return path, nil
}

func fileName(t time.Time) string {
    return "ocr_report_" + t.Format("20060102-150405") + ".json"
}

// splitParties unpacks the record's joined parties field for the wire form.
func splitParties(joined string) []string {
    if joined == "" { return nil }
    return strings.Split(joined, "+")
}
