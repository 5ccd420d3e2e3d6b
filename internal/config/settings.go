package config

import (
    "encoding/json"
    "errors"
    "io/fs"
    "os"

    "github.com/local/scansort/internal/fsutil"
)

// Settings are the persisted knobs the interactive menu edits. They live in
// a small JSON file so a configured scan station survives restarts without
// any environment plumbing.
type Settings struct {
    TesseractPath string   `json:"tesseract_path,omitempty"`
    MaxWorkers    int      `json:"max_workers,omitempty"`
    OCRLang       string   `json:"ocr_lang,omitempty"`
    ScanFolder    string   `json:"scan_folder,omitempty"`
    ExtraArgs     []string `json:"extra_args,omitempty"`
}

// SettingsPath returns the settings file location, SETTINGS_FILE or the
// default config.json in the working directory.
func SettingsPath() string { return getEnv("SETTINGS_FILE", "config.json") }

// DefaultSettings returns the out-of-the-box values.
func DefaultSettings() Settings {
    return Settings{MaxWorkers: DefaultWorkers(), OCRLang: "slv"}
}

// LoadSettings reads the settings file. A missing file is not an error and
// yields the defaults; a malformed one is reported.
func LoadSettings(path string) (Settings, error) {
    s := DefaultSettings()
    data, err := os.ReadFile(path)
    if err != nil {
        if errors.Is(err, fs.ErrNotExist) { return s, nil }
        return s, err
    }
    if err := json.Unmarshal(data, &s); err != nil {
        return DefaultSettings(), err
    }
    if s.MaxWorkers <= 0 { s.MaxWorkers = DefaultWorkers() }
    if s.OCRLang == "" { s.OCRLang = "slv" }
    return s, nil
}

// Save writes the settings atomically so an interrupted edit never corrupts
// the file.
func (s Settings) Save(path string) error {
    data, err := json.MarshalIndent(s, "", "  ")
    if err != nil { return err }
    return fsutil.WriteFileAtomic(path, data, 0644)
}
