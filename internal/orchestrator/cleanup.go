package orchestrator

import (
    "context"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
)

// SweepTemps removes temp artifacts our helpers leave behind (scansort-*
// files and directories in the OS temp dir) once they are older than
// maxAge. A crashed run is the only thing that leaves them. Returns the
// number of entries removed.
func SweepTemps(maxAge time.Duration) int {
    entries, err := os.ReadDir(os.TempDir())
    if err != nil { return 0 }
    now := time.Now()
    removed := 0
    for _, e := range entries {
        if !strings.HasPrefix(e.Name(), "scansort-") { continue }
        info, err := e.Info()
        if err != nil { continue }
        if now.Sub(info.ModTime()) < maxAge { continue }
        path := filepath.Join(os.TempDir(), e.Name())
        if e.IsDir() {
            if os.RemoveAll(path) == nil { removed++ }
            continue
        }
        if os.Remove(path) == nil { removed++ }
    }
    return removed
}

// CleanupLoop sweeps periodically until the context ends. Serve mode runs
// one of these next to the consumer.
func CleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
    if interval <= 0 { interval = time.Hour }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if n := SweepTemps(maxAge); n > 0 {
                log.Debug().Int("removed", n).Msg("temp sweep")
            }
        }
    }
}
