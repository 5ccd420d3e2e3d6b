package pipeline

import (
    "context"
    "runtime"
    "sync"

    "github.com/rs/zerolog/log"
)

// DefaultWorkers is the CPU count capped at 16; rasterizing plus one child
// tesseract per worker saturates a core each.
func DefaultWorkers() int {
    n := runtime.NumCPU()
    if n > 16 { n = 16 }
    if n < 1 { n = 1 }
    return n
}

// RunPool processes the given images on a fixed worker pool and returns the
// results in completion order once every task finished. Failed items come
// back as data; cancellation fails the remaining items without aborting the
// collection.
func RunPool(ctx context.Context, eng Engine, paths []string, cfg TaskConfig, workers int) []Result {
    if workers <= 0 { workers = DefaultWorkers() }
    if len(paths) == 0 { return nil }
    if workers > len(paths) { workers = len(paths) }

    log.Info().Int("workers", workers).Int("items", len(paths)).Msg("page pool started")

    tasks := make(chan string)
    results := make(chan Result)

    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(id int) {
            defer wg.Done()
            for path := range tasks {
                if err := ctx.Err(); err != nil {
                    results <- Result{Failure: &Failure{ImagePath: path, Error: err.Error(), Kind: Classify(err)}}
                    continue
                }
                results <- ProcessPage(ctx, eng, path, cfg)
            }
        }(i)
    }

    go func() {
        for _, p := range paths { tasks <- p }
        close(tasks)
        wg.Wait()
        close(results)
    }()

    out := make([]Result, 0, len(paths))
    for r := range results { out = append(out, r) }
    return out
}
