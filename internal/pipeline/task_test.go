package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/local/scansort/internal/ocr"
)

type stubEngine struct {
	mu          sync.Mutex
	fullText    string
	regionText  string
	footerWords []ocr.Word
	textErr     error
	pdfErr      error
	osd         ocr.OSD
	osdErr      error
	textPaths   []string
	detectPaths []string
	wordsCalls  int
	regionCalls int
}

func newStub(fullText string) *stubEngine {
	return &stubEngine{fullText: fullText, osdErr: errors.New("osd unavailable")}
}

func (s *stubEngine) Text(_ context.Context, imgPath string, _ ocr.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textPaths = append(s.textPaths, imgPath)
	if s.textErr != nil {
		return "", s.textErr
	}
	if strings.Contains(filepath.Base(imgPath), "scansort-region-") {
		s.regionCalls++
		return s.regionText, nil
	}
	return s.fullText, nil
}

func (s *stubEngine) PDF(_ context.Context, _, outStem string, _ ocr.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pdfErr != nil {
		return "", s.pdfErr
	}
	p := outStem + ".pdf"
	if err := os.WriteFile(p, []byte("%PDF-1.4\n"), 0644); err != nil {
		return "", err
	}
	return p, nil
}

func (s *stubEngine) Words(_ context.Context, _ string, _ ocr.Options) ([]ocr.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wordsCalls++
	return s.footerWords, nil
}

func (s *stubEngine) Detect(_ context.Context, imgPath string) (ocr.OSD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectPaths = append(s.detectPaths, imgPath)
	if s.osdErr != nil {
		return ocr.OSD{}, s.osdErr
	}
	return s.osd, nil
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 100, 100))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func fixedNow() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

const invoiceText = `RAČUN št. 2024-117
Alfa d.o.o.
Litostrojska cesta 40, 1000 Ljubljana
Kupec: Beta d.d., Dunajska 5
Datum: 05.09.2024
Stran 2

Direktor: Janez Novak
`

func TestProcessPageHappyPath(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan1.png")
	eng := newStub(invoiceText)

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	rec := res.Record

	if rec.ExtractedDate != "05-09-2024" || rec.DateFromFallback {
		t.Fatalf("date = %q fallback=%v", rec.ExtractedDate, rec.DateFromFallback)
	}
	if rec.DocumentType != "invoice" || rec.DocumentTitle != "račun št. 2024-117" {
		t.Fatalf("type/title = %q/%q", rec.DocumentType, rec.DocumentTitle)
	}
	if rec.Parties != "alfa d.o.o.+beta d.d." {
		t.Fatalf("parties = %q", rec.Parties)
	}
	if rec.SignatoryName != "janez_novak" {
		t.Fatalf("signatory = %q", rec.SignatoryName)
	}
	if rec.PageNumber != 2 {
		t.Fatalf("page = %d, want 2", rec.PageNumber)
	}
	if eng.wordsCalls != 0 {
		t.Fatalf("footer retry ran despite printed page number")
	}
	if len(rec.HeaderSignature) != 8 {
		t.Fatalf("header signature %q", rec.HeaderSignature)
	}
	if len(rec.HeaderVisualHash) != 64 {
		t.Fatalf("visual hash length %d, want 64", len(rec.HeaderVisualHash))
	}
	if LeadingToken(rec.GroupKey) != "invoice" {
		t.Fatalf("group key %q", rec.GroupKey)
	}
	base := filepath.Base(rec.RenderedPDFPath)
	if !strings.HasPrefix(base, "05-09-2024_janez_novak_scan1") || !strings.HasSuffix(base, ".pdf") {
		t.Fatalf("pdf name %q", base)
	}
	if _, err := os.Stat(rec.RenderedPDFPath); err != nil {
		t.Fatalf("pdf not on disk: %v", err)
	}
	if rec.Elapsed <= 0 {
		t.Fatalf("elapsed not recorded")
	}
}

func TestProcessPageTextOnly(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan8.png")
	eng := newStub(invoiceText)
	eng.pdfErr = errors.New("must not render")

	res := ProcessPage(context.Background(), eng, img, TaskConfig{TextOnly: true, Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Record.RenderedPDFPath != "" {
		t.Fatalf("text-only run rendered %q", res.Record.RenderedPDFPath)
	}
	if res.Record.Text != invoiceText {
		t.Fatalf("recognized text not carried on the record")
	}
}

func TestProcessPageDateFromRegion(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan2.png")
	eng := newStub("POGODBA o najemu\nbrez datuma v telesu\n")
	eng.regionText = "Ljubljana, 05.09.2024"

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Record.ExtractedDate != "05-09-2024" {
		t.Fatalf("date = %q", res.Record.ExtractedDate)
	}
	if res.Record.DateFromFallback {
		t.Fatalf("region hit must not count as fallback-to-today")
	}
	if eng.regionCalls == 0 {
		t.Fatalf("region retry never ran")
	}
}

func TestProcessPageDateFallsBackToToday(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan3.png")
	eng := newStub("IZJAVA o skladnosti\nbrez vsakršnega datuma\n")
	eng.regionText = "tudi tukaj nič"

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Record.ExtractedDate != "15-06-2025" || !res.Record.DateFromFallback {
		t.Fatalf("date = %q fallback=%v", res.Record.ExtractedDate, res.Record.DateFromFallback)
	}
}

func TestProcessPageFooterPageNumber(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan4.png")
	eng := newStub("SKLEP o imenovanju\nz dne 01.02.2024\n")
	eng.footerWords = []ocr.Word{{Text: "skupaj", Conf: 91}, {Text: "2", Conf: 95}}

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Record.PageNumber != 2 {
		t.Fatalf("page = %d, want 2", res.Record.PageNumber)
	}
	if eng.wordsCalls != 1 {
		t.Fatalf("words calls = %d, want 1", eng.wordsCalls)
	}
}

func TestProcessPageRotation(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan5.png")
	eng := newStub(invoiceText)
	eng.osdErr = nil
	eng.osd = ocr.OSD{Rotate: 180, Conf: 3.1}

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if len(eng.detectPaths) != 1 || len(eng.textPaths) == 0 {
		t.Fatalf("detect/text calls: %d/%d", len(eng.detectPaths), len(eng.textPaths))
	}
	// The rotated page is re-saved, so recognition reads a different file.
	if eng.textPaths[0] == eng.detectPaths[0] {
		t.Fatalf("rotation did not rewrite the working page")
	}
}

func TestProcessPageUnreadableInput(t *testing.T) {
	eng := newStub(invoiceText)
	res := ProcessPage(context.Background(), eng, filepath.Join(t.TempDir(), "missing.png"), TaskConfig{Now: fixedNow})
	if res.Failure == nil || res.Failure.Kind != "input" {
		t.Fatalf("got %+v, want input failure", res.Failure)
	}
}

func TestProcessPageEngineFailure(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan6.png")
	eng := newStub("")
	eng.textErr = errors.New("tesseract text failed: boom")

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure == nil || res.Failure.Kind != "engine" {
		t.Fatalf("got %+v, want engine failure", res.Failure)
	}
	if res.Failure.Elapsed <= 0 {
		t.Fatalf("failure elapsed not recorded")
	}
}

func TestProcessPagePDFFailure(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "scan7.png")
	eng := newStub(invoiceText)
	eng.pdfErr = errors.New("render exploded")

	res := ProcessPage(context.Background(), eng, img, TaskConfig{Now: fixedNow})
	if res.Failure == nil || res.Failure.Kind != "engine" {
		t.Fatalf("got %+v, want engine failure", res.Failure)
	}
}

func TestRunPoolCollectsEverything(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a_1.png"),
		writePNG(t, dir, "a_2.png"),
		writePNG(t, dir, "a_3.png"),
		filepath.Join(dir, "missing.png"),
	}
	eng := newStub(invoiceText)

	results := RunPool(context.Background(), eng, paths, TaskConfig{Now: fixedNow}, 3)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	records, failures := 0, 0
	for _, r := range results {
		if r.Failure != nil {
			failures++
		} else {
			records++
		}
	}
	if records != 3 || failures != 1 {
		t.Fatalf("records=%d failures=%d, want 3/1", records, failures)
	}
}

func TestRunPoolCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writePNG(t, dir, "c_1.png"), writePNG(t, dir, "c_2.png")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunPool(ctx, newStub(invoiceText), paths, TaskConfig{Now: fixedNow}, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Failure == nil {
			t.Fatalf("cancelled run produced a record")
		}
	}
}

func TestRunPoolEmpty(t *testing.T) {
	if got := RunPool(context.Background(), newStub(""), nil, TaskConfig{}, 4); len(got) != 0 {
		t.Fatalf("got %d results for empty input", len(got))
	}
}
