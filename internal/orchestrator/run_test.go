package orchestrator

import (
    "bytes"
    "context"
    "fmt"
    "image"
    "image/png"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/local/scansort/internal/ocr"
    "github.com/local/scansort/internal/pdfmerge"
)

type stubEngine struct {
    mu        sync.Mutex
    text      string
    textErr   error
    pdfErr    error
    pdfInputs []string
    pdfCalls  int
    textCalls int
}

func (s *stubEngine) Text(_ context.Context, _ string, _ ocr.Options) (string, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.textCalls++
    return s.text, s.textErr
}

func (s *stubEngine) PDF(_ context.Context, imgPath, outStem string, _ ocr.Options) (string, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.pdfCalls++
    s.pdfInputs = append(s.pdfInputs, imgPath)
    if s.pdfErr != nil {
        return "", s.pdfErr
    }
    p := outStem + ".pdf"
    writeMinimalPDF(p)
    return p, nil
}

func (s *stubEngine) Words(_ context.Context, _ string, _ ocr.Options) ([]ocr.Word, error) {
    return nil, nil
}

func (s *stubEngine) Detect(_ context.Context, _ string) (ocr.OSD, error) {
    return ocr.OSD{}, fmt.Errorf("osd unavailable")
}

// writeMinimalPDF emits a valid one-page PDF with an empty content stream,
// computing xref offsets as the bytes are laid down.
func writeMinimalPDF(path string) {
    var buf bytes.Buffer
    offsets := make([]int, 5)
    buf.WriteString("%PDF-1.4\n")
    add := func(n int, body string) {
        offsets[n] = buf.Len()
        fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
    }
    add(1, "<< /Type /Catalog /Pages 2 0 R >>")
    add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
    add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>")
    add(4, "<< /Length 0 >>\nstream\nendstream")

    xref := buf.Len()
    buf.WriteString("xref\n0 5\n")
    buf.WriteString("0000000000 65535 f \n")
    for i := 1; i <= 4; i++ {
        fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
    }
    fmt.Fprintf(&buf, "trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
    _ = os.WriteFile(path, buf.Bytes(), 0644)
}

func writePNG(t *testing.T, dir, name string) string {
    t.Helper()
    path := filepath.Join(dir, name)
    f, err := os.Create(path)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    defer f.Close()
    if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 80, 80))); err != nil {
        t.Fatalf("encode: %v", err)
    }
    return path
}

const scanText = `RAČUN št. 2024-117
Alfa d.o.o.
Kupec: Beta d.d.
Datum: 05.09.2024

Direktor: Janez Novak
`

func testRunner(eng *stubEngine) *Runner {
    return New(eng, Config{Lang: "slv", Workers: 1})
}

func TestRunTextRenamesAndWritesText(t *testing.T) {
    dir := t.TempDir()
    writePNG(t, dir, "scan_a.png")
    writePNG(t, dir, "scan_b.png")
    eng := &stubEngine{text: scanText, pdfErr: fmt.Errorf("must not render")}

    rep, reportPath, err := testRunner(eng).RunText(context.Background(), dir)
    if err != nil {
        t.Fatalf("RunText: %v", err)
    }
    if rep.Succeeded != 2 || rep.Failed != 0 {
        t.Fatalf("succeeded=%d failed=%d, want 2/0", rep.Succeeded, rep.Failed)
    }
    if eng.pdfCalls != 0 {
        t.Fatalf("text mode rendered %d PDFs", eng.pdfCalls)
    }

    first := filepath.Join(dir, "05-09-2024_janez_novak.png")
    second := filepath.Join(dir, "05-09-2024_janez_novak_1.png")
    for _, p := range []string{first, second} {
        if _, err := os.Stat(p); err != nil {
            t.Fatalf("renamed image missing: %v", err)
        }
    }
    data, err := os.ReadFile(filepath.Join(dir, "05-09-2024_janez_novak.txt"))
    if err != nil {
        t.Fatalf("text file missing: %v", err)
    }
    if string(data) != scanText {
        t.Fatalf("text content = %q", data)
    }
    if _, err := os.Stat(reportPath); err != nil {
        t.Fatalf("report missing: %v", err)
    }
    if _, err := os.Stat(filepath.Join(dir, "scan_a.png")); !os.IsNotExist(err) {
        t.Fatalf("original scan_a.png still present")
    }
}

func TestRunGroupBucketsIntoDocument(t *testing.T) {
    dir := t.TempDir()
    writePNG(t, dir, "scan_1.png")
    writePNG(t, dir, "scan_2.png")
    eng := &stubEngine{text: scanText}

    rep, reportPath, err := testRunner(eng).RunGroup(context.Background(), dir)
    if err != nil {
        t.Fatalf("RunGroup: %v", err)
    }
    if rep.Succeeded != 2 {
        t.Fatalf("succeeded = %d, want 2", rep.Succeeded)
    }
    if len(rep.Documents) != 1 {
        t.Fatalf("documents = %d, want 1", len(rep.Documents))
    }
    doc := rep.Documents[0]
    if doc.Pages != 2 {
        t.Fatalf("document pages = %d, want 2", doc.Pages)
    }
    if n, err := pdfmerge.PageCount(doc.MergedPDF); err != nil || n != 2 {
        t.Fatalf("merged pdf pages = %d (%v), want 2", n, err)
    }
    if filepath.Dir(doc.MergedPDF) != doc.Folder {
        t.Fatalf("merged pdf %q not inside %q", doc.MergedPDF, doc.Folder)
    }
    if _, err := os.Stat(reportPath); err != nil {
        t.Fatalf("report missing: %v", err)
    }
    // sources moved into the document folder
    if _, err := os.Stat(filepath.Join(dir, "scan_1.png")); !os.IsNotExist(err) {
        t.Fatalf("scan_1.png still in the source folder")
    }
}

func TestRunGroupEmptyFolder(t *testing.T) {
    dir := t.TempDir()
    eng := &stubEngine{text: scanText}
    if _, _, err := testRunner(eng).RunGroup(context.Background(), dir); err == nil {
        t.Fatal("expected error for empty folder")
    }
}

func TestRunGroupAllPagesFailed(t *testing.T) {
    dir := t.TempDir()
    writePNG(t, dir, "scan.png")
    eng := &stubEngine{textErr: fmt.Errorf("engine down")}

    rep, reportPath, err := testRunner(eng).RunGroup(context.Background(), dir)
    if err == nil {
        t.Fatal("expected overall failure when every page fails")
    }
    if rep == nil || rep.Failed != 1 {
        t.Fatalf("report = %+v", rep)
    }
    // the report still documents what happened
    if _, serr := os.Stat(reportPath); serr != nil {
        t.Fatalf("report missing: %v", serr)
    }
}

func TestRunExportMergesInNaturalOrder(t *testing.T) {
    dir := t.TempDir()
    // natural order is a1, b2, b10 despite lexicographic b10 < b2
    writePNG(t, dir, "b10.png")
    writePNG(t, dir, "a1.png")
    writePNG(t, dir, "b2.png")
    eng := &stubEngine{text: scanText}

    out, err := testRunner(eng).RunExport(context.Background(), dir, "")
    if err != nil {
        t.Fatalf("RunExport: %v", err)
    }
    if filepath.Base(out) != "ocr_export.pdf" {
        t.Fatalf("out = %q", out)
    }
    if n, err := pdfmerge.PageCount(out); err != nil || n != 3 {
        t.Fatalf("export pages = %d (%v), want 3", n, err)
    }
    var got []string
    for _, p := range eng.pdfInputs {
        got = append(got, filepath.Base(p))
    }
    want := []string{"a1.png", "b2.png", "b10.png"}
    if strings.Join(got, ",") != strings.Join(want, ",") {
        t.Fatalf("render order = %v, want %v", got, want)
    }
    // nothing renamed in export mode
    if _, err := os.Stat(filepath.Join(dir, "a1.png")); err != nil {
        t.Fatalf("source missing after export: %v", err)
    }
}

func TestRunExportAbortsOnPageFailure(t *testing.T) {
    dir := t.TempDir()
    writePNG(t, dir, "scan.png")
    eng := &stubEngine{pdfErr: fmt.Errorf("render blew up")}

    if _, err := testRunner(eng).RunExport(context.Background(), dir, ""); err == nil {
        t.Fatal("expected export to abort")
    }
    if _, err := os.Stat(filepath.Join(dir, "ocr_export.pdf")); !os.IsNotExist(err) {
        t.Fatal("partial export left behind")
    }
}

func TestRunSingle(t *testing.T) {
    dir := t.TempDir()
    img := writePNG(t, dir, "scan.png")
    eng := &stubEngine{text: scanText}

    text, err := testRunner(eng).RunSingle(context.Background(), img)
    if err != nil {
        t.Fatalf("RunSingle: %v", err)
    }
    if text != scanText {
        t.Fatalf("text = %q", text)
    }
}

func TestSweepTemps(t *testing.T) {
    tmp := t.TempDir()
    t.Setenv("TMPDIR", tmp)

    old := filepath.Join(tmp, "scansort-old.png")
    fresh := filepath.Join(tmp, "scansort-fresh.png")
    other := filepath.Join(tmp, "unrelated.txt")
    for _, p := range []string{old, fresh, other} {
        if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
            t.Fatalf("write: %v", err)
        }
    }
    past := time.Now().Add(-2 * time.Hour)
    if err := os.Chtimes(old, past, past); err != nil {
        t.Fatalf("chtimes: %v", err)
    }
    if err := os.Chtimes(other, past, past); err != nil {
        t.Fatalf("chtimes: %v", err)
    }

    if n := SweepTemps(time.Hour); n != 1 {
        t.Fatalf("removed = %d, want 1", n)
    }
    if _, err := os.Stat(old); !os.IsNotExist(err) {
        t.Fatal("aged temp file survived the sweep")
    }
    if _, err := os.Stat(fresh); err != nil {
        t.Fatal("fresh temp file was removed")
    }
    if _, err := os.Stat(other); err != nil {
        t.Fatal("unrelated file was removed")
    }
}
