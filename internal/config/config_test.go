package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestLoadSettingsMissingFile(t *testing.T) {
    s, err := LoadSettings(filepath.Join(t.TempDir(), "config.json"))
    if err != nil { t.Fatalf("LoadSettings: %v", err) }
    if s.OCRLang != "slv" {
        t.Fatalf("lang = %q, want slv", s.OCRLang)
    }
    if s.MaxWorkers < 1 {
        t.Fatalf("workers = %d", s.MaxWorkers)
    }
}

func TestSettingsRoundTrip(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    in := Settings{
        TesseractPath: "/usr/bin/tesseract",
        MaxWorkers:    6,
        OCRLang:       "slv+eng",
        ScanFolder:    "/scans",
        ExtraArgs:     []string{"--psm", "4"},
    }
    if err := in.Save(path); err != nil { t.Fatalf("Save: %v", err) }

    out, err := LoadSettings(path)
    if err != nil { t.Fatalf("LoadSettings: %v", err) }
    if out.TesseractPath != in.TesseractPath || out.MaxWorkers != 6 || out.OCRLang != "slv+eng" {
        t.Fatalf("got %+v", out)
    }
    if len(out.ExtraArgs) != 2 || out.ExtraArgs[1] != "4" {
        t.Fatalf("extra args = %v", out.ExtraArgs)
    }
}

func TestLoadSettingsMalformed(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
        t.Fatalf("write: %v", err)
    }
    s, err := LoadSettings(path)
    if err == nil {
        t.Fatalf("expected parse error")
    }
    if s.OCRLang != "slv" {
        t.Fatalf("malformed file should fall back to defaults, got %+v", s)
    }
}

func TestMergeEnvWins(t *testing.T) {
    cfg := Config{}
    cfg.OCR.Lang = "eng"
    cfg.Merge(Settings{OCRLang: "slv", MaxWorkers: 4, TesseractPath: "/opt/tess", ExtraArgs: []string{"-c", "x=1"}})

    if cfg.OCR.Lang != "eng" {
        t.Fatalf("env lang overridden: %q", cfg.OCR.Lang)
    }
    if cfg.Pipeline.Workers != 4 {
        t.Fatalf("workers = %d, want 4 from settings", cfg.Pipeline.Workers)
    }
    if cfg.OCR.BinaryPath != "/opt/tess" {
        t.Fatalf("binary = %q", cfg.OCR.BinaryPath)
    }
    if cfg.OCR.Slots != 4 {
        t.Fatalf("slots = %d, want workers", cfg.OCR.Slots)
    }
    if len(cfg.OCR.ExtraArgs) != 2 {
        t.Fatalf("extra args = %v", cfg.OCR.ExtraArgs)
    }
}

func TestMergeHardDefaults(t *testing.T) {
    cfg := Config{}
    cfg.Merge(Settings{})
    if cfg.OCR.Lang != "slv" {
        t.Fatalf("lang = %q", cfg.OCR.Lang)
    }
    if cfg.Pipeline.Workers < 1 || cfg.Pipeline.Workers > 16 {
        t.Fatalf("workers = %d", cfg.Pipeline.Workers)
    }
}

func TestFromEnvOverrides(t *testing.T) {
    t.Setenv("HASH_GRID", "32")
    t.Setenv("OCR_TIMEOUT", "30s")
    t.Setenv("KEEP_PAGE_PDFS", "yes")

    cfg := FromEnv()
    if cfg.Pipeline.HashGrid != 32 {
        t.Fatalf("grid = %d", cfg.Pipeline.HashGrid)
    }
    if cfg.OCR.Timeout != 30*time.Second {
        t.Fatalf("timeout = %v", cfg.OCR.Timeout)
    }
    if !cfg.Pipeline.KeepPagePDFs {
        t.Fatalf("keep page pdfs not parsed")
    }
    if cfg.Queue.Stream != "jobs:ocr:batches" {
        t.Fatalf("stream = %q", cfg.Queue.Stream)
    }
}
