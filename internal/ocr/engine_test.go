package ocr

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBuildArgsDefaults(t *testing.T) {
	got := buildArgs("scan.png", "stdout", Options{Lang: "slv", DPI: 300}.normalized(), "tsv")
	want := []string{
		"scan.png", "stdout",
		"-l", "slv",
		"--dpi", "300",
		"--oem", "1", "--psm", "6",
		"-c", "preserve_interword_spaces=1",
		"tsv",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildArgsWhitelistAndExtra(t *testing.T) {
	o := Options{
		Lang:      "eng",
		PSM:       7,
		Whitelist: "0123456789.-/ ",
		Extra:     []string{"--user-words", "custom.txt"},
	}
	got := buildArgs("r.png", "out", o.normalized(), "pdf")
	want := []string{
		"r.png", "out",
		"-l", "eng",
		"--oem", "1", "--psm", "7",
		"-c", "preserve_interword_spaces=1",
		"-c", "tessedit_char_whitelist=0123456789.-/ ",
		"--user-words", "custom.txt",
		"pdf",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t2480\t3508\t-1\t\n" +
		"4\t1\t1\t1\t1\t0\t100\t200\t800\t40\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t100\t200\t180\t40\t96.5\tStran\n" +
		"5\t1\t1\t1\t1\t2\t300\t200\t60\t40\t91.0\t3\n" +
		"5\t1\t1\t1\t1\t3\t400\t200\t60\t40\t-1\tghost\n" +
		"5\t1\t1\t1\t1\t4\t500\t200\t60\t40\t88.0\t \n"
	words := parseTSV(tsv)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2: %v", len(words), words)
	}
	if words[0].Text != "Stran" || words[0].Conf != 96.5 || words[0].Left != 100 || words[0].Height != 40 {
		t.Fatalf("unexpected first word: %+v", words[0])
	}
	if got := Texts(words); !reflect.DeepEqual(got, []string{"Stran", "3"}) {
		t.Fatalf("Texts = %v", got)
	}
}

func TestParseOSD(t *testing.T) {
	out := "Page number: 0\n" +
		"Orientation in degrees: 90\n" +
		"Rotate: 270\n" +
		"Orientation confidence: 2.33\n" +
		"Script: Latin\n" +
		"Script confidence: 1.94\n"
	osd, err := parseOSD(out)
	if err != nil {
		t.Fatalf("parseOSD: %v", err)
	}
	if osd.Rotate != 270 || osd.Orientation != 90 || osd.Script != "Latin" {
		t.Fatalf("unexpected OSD: %+v", osd)
	}
	if osd.Conf != 2.33 {
		t.Fatalf("conf = %v, want 2.33", osd.Conf)
	}
}

func TestParseOSDMissingRotate(t *testing.T) {
	if _, err := parseOSD("Script: Latin\n"); err == nil {
		t.Fatalf("want error for output without rotation")
	}
}

func TestDegradedEngine(t *testing.T) {
	e := &Engine{timeout: time.Second, semaphore: make(chan struct{}, 1)}
	if e.Available() {
		t.Fatalf("engine without binary reports available")
	}
	if _, err := e.Text(context.Background(), "x.png", Options{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if _, err := e.Detect(context.Background(), "x.png"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := "abcdefghijklmnop"
	if got := tail(long, 4); got != "...mnop" {
		t.Fatalf("got %q", got)
	}
}
