package orchestrator

import (
    "github.com/local/scansort/internal/pipeline"
)

// Config carries the knobs a run snapshots before its pool starts. Values
// come from env config merged with the persisted settings; jobs may
// override language and worker count per run.
type Config struct {
    Lang           string
    ExtraArgs      []string
    Workers        int
    HashGrid       int
    HashDistance   int
    HeaderFraction float64
    FooterFraction float64
    KeepPagePDFs   bool
    RenderDPI      int
}

// Runner executes whole-folder runs over one recognizer engine. It holds no
// per-run state, so one runner serves the menu, one-shot flags and the
// queue consumer alike.
type Runner struct {
    eng pipeline.Engine
    cfg Config
}

func New(eng pipeline.Engine, cfg Config) *Runner {
    if cfg.Workers <= 0 { cfg.Workers = pipeline.DefaultWorkers() }
    if cfg.RenderDPI <= 0 { cfg.RenderDPI = 150 }
    return &Runner{eng: eng, cfg: cfg}
}

// WithJob returns a runner with per-job overrides applied. Zero values keep
// the configured defaults.
func (r *Runner) WithJob(lang string, workers int) *Runner {
    cfg := r.cfg
    if lang != "" { cfg.Lang = lang }
    if workers > 0 { cfg.Workers = workers }
    return &Runner{eng: r.eng, cfg: cfg}
}

func (r *Runner) taskConfig(textOnly bool) pipeline.TaskConfig {
    return pipeline.TaskConfig{
        Lang:           r.cfg.Lang,
        ExtraArgs:      r.cfg.ExtraArgs,
        HashGrid:       r.cfg.HashGrid,
        HeaderFraction: r.cfg.HeaderFraction,
        FooterFraction: r.cfg.FooterFraction,
        TextOnly:       textOnly,
    }
}
