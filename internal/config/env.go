package config

import (
    "os"
    "runtime"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// OCRConfig defines the tesseract boundary and page rendering.
type OCRConfig struct {
    BinaryPath string
    Slots      int
    Timeout    time.Duration
    Lang       string
    ExtraArgs  []string
    RenderDPI  int
}

// PipelineConfig tunes page processing and grouping.
type PipelineConfig struct {
    Workers        int
    HashGrid       int
    HashDistance   int
    HeaderFraction float64
    FooterFraction float64
    KeepPagePDFs   bool
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
    RedisURL     string
    Stream       string
    Group        string
    Consumer     string
    PollInterval time.Duration
}

// ArchiveConfig defines the S3 archive target. An empty bucket disables
// archiving entirely.
type ArchiveConfig struct {
    Bucket     string
    Region     string
    Prefix     string
    Endpoint   string
    AccessKey  string
    SecretKey  string
    Passphrase string
}

// Config is the top-level configuration.
type Config struct {
    Logging       LoggingConfig
    Axiom         AxiomConfig
    OCR           OCRConfig
    Pipeline      PipelineConfig
    Queue         QueueConfig
    Archive       ArchiveConfig
    HTTPAddr      string
    CleanupMaxAge time.Duration
}

// FromEnv loads configuration from environment with sensible defaults.
// A .env file in the working directory is folded in first when present.
func FromEnv() Config {
    _ = godotenv.Load()

    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     strings.EqualFold(getEnv("LOG_FORMAT", devDefaultFormat()), "console"),
        File:       getEnv("LOG_FILE", "logs/ocr_processor.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_scansort",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // OCR: zero/empty values mean "resolve from persisted settings" (Merge).
    cfg.OCR = OCRConfig{
        BinaryPath: getEnv("TESSERACT_PATH", ""),
        Slots:      parseInt(getEnv("OCR_SLOTS", "0"), 0),
        Timeout:    parseDuration(getEnv("OCR_TIMEOUT", "120s"), 120*time.Second),
        Lang:       getEnv("OCR_LANG", ""),
        RenderDPI:  parseInt(getEnv("RENDER_DPI", "150"), 150),
    }

    cfg.Pipeline = PipelineConfig{
        Workers:        parseInt(getEnv("WORKER_CONCURRENCY", "0"), 0),
        HashGrid:       parseInt(getEnv("HASH_GRID", "16"), 16),
        HashDistance:   parseInt(getEnv("HASH_DISTANCE_MAX", "18"), 18),
        HeaderFraction: parseFloat(getEnv("HEADER_STRIP_FRACTION", "0.20"), 0.20),
        FooterFraction: parseFloat(getEnv("FOOTER_STRIP_FRACTION", "0.15"), 0.15),
        KeepPagePDFs:   parseBool(getEnv("KEEP_PAGE_PDFS", "false")),
    }

    cfg.Queue = QueueConfig{
        RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
        Stream:       getEnv("QUEUE_STREAM", "jobs:ocr:batches"),
        Group:        getEnv("QUEUE_GROUP", "workers:ocr"),
        Consumer:     getEnv("CONSUMER_NAME", defaultConsumer()),
        PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "100ms"), 100*time.Millisecond),
    }

    cfg.Archive = ArchiveConfig{
        Bucket:     getEnv("S3_BUCKET", ""),
        Region:     getEnv("S3_REGION", ""),
        Prefix:     getEnv("S3_PREFIX", "scansort"),
        Endpoint:   getEnv("S3_ENDPOINT", ""),
        AccessKey:  getEnv("S3_ACCESS_KEY", ""),
        SecretKey:  getEnv("S3_SECRET_KEY", ""),
        Passphrase: getEnv("ARCHIVE_ENCRYPT_PASSPHRASE", ""),
    }

    cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
    cfg.CleanupMaxAge = parseDuration(getEnv("CLEANUP_MAX_AGE", "24h"), 24*time.Hour)

    return cfg
}

// Merge applies persisted settings underneath env values. Env wins where
// both are set; whatever is still unset afterwards gets a hard default.
func (c *Config) Merge(s Settings) {
    if c.OCR.BinaryPath == "" { c.OCR.BinaryPath = s.TesseractPath }
    if c.OCR.Lang == "" { c.OCR.Lang = s.OCRLang }
    if c.Pipeline.Workers <= 0 { c.Pipeline.Workers = s.MaxWorkers }
    if len(c.OCR.ExtraArgs) == 0 { c.OCR.ExtraArgs = s.ExtraArgs }

    if c.OCR.Lang == "" { c.OCR.Lang = "slv" }
    if c.Pipeline.Workers <= 0 { c.Pipeline.Workers = DefaultWorkers() }
    if c.OCR.Slots <= 0 { c.OCR.Slots = c.Pipeline.Workers }
}

// DefaultWorkers is the CPU-bound pool width: NumCPU capped at 16.
func DefaultWorkers() int {
    n := runtime.NumCPU()
    if n > 16 { return 16 }
    if n < 1 { return 1 }
    return n
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultFormat() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "console" }
    return "json"
}

func defaultConsumer() string {
    host, err := os.Hostname()
    if err != nil || host == "" { return "scansort-1" }
    return host
}
