package orchestrator

import (
    "context"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "io"
    "os"

    "github.com/local/scansort/internal/ocr"
    "github.com/local/scansort/internal/pipeline"
)

// TextCache is the store consulted before running full-page recognition.
// *store.TextCache satisfies it.
type TextCache interface {
    Get(ctx context.Context, key string) (string, bool, error)
    Set(ctx context.Context, key, text string) error
}

// WithTextCache wraps an engine so identical page bytes under identical
// options are recognized once across runs. Only Text goes through the
// cache; renders, word boxes and OSD always run. Cache errors degrade to a
// plain recognition pass.
func WithTextCache(eng pipeline.Engine, cache TextCache) pipeline.Engine {
    if cache == nil { return eng }
    return &cachedEngine{Engine: eng, cache: cache}
}

type cachedEngine struct {
    pipeline.Engine
    cache TextCache
}

func (c *cachedEngine) Text(ctx context.Context, imgPath string, o ocr.Options) (string, error) {
    key, err := cacheKey(imgPath, o)
    if err != nil {
        return c.Engine.Text(ctx, imgPath, o)
    }
    if text, ok, gerr := c.cache.Get(ctx, key); gerr == nil && ok {
        return text, nil
    }
    text, err := c.Engine.Text(ctx, imgPath, o)
    if err == nil {
        _ = c.cache.Set(ctx, key, text)
    }
    return text, err
}

// cacheKey hashes the file bytes plus every option that changes what
// tesseract would print.
func cacheKey(imgPath string, o ocr.Options) (string, error) {
    f, err := os.Open(imgPath)
    if err != nil { return "", err }
    defer f.Close()
    h := sha256.New()
    if _, err := io.Copy(h, f); err != nil { return "", err }
    fmt.Fprintf(h, "|%s|%d|%d|%d|%s|%v", o.Lang, o.PSM, o.OEM, o.DPI, o.Whitelist, o.Extra)
    return hex.EncodeToString(h.Sum(nil)), nil
}
