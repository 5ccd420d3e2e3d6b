package main

import (
    "context"
    "flag"
    "fmt"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/scansort/internal/archive"
    "github.com/local/scansort/internal/config"
    "github.com/local/scansort/internal/logger"
    "github.com/local/scansort/internal/menu"
    "github.com/local/scansort/internal/metrics"
    "github.com/local/scansort/internal/ocr"
    "github.com/local/scansort/internal/orchestrator"
    "github.com/local/scansort/internal/pipeline"
    "github.com/local/scansort/internal/queue"
    "github.com/local/scansort/internal/statuscheck"
    "github.com/local/scansort/internal/store"
    "github.com/local/scansort/internal/web"
)

func main() {
    var (
        folder  = flag.String("folder", "", "process this folder once and exit")
        mode    = flag.String("mode", "group", "one-shot mode: group, text or export")
        output  = flag.String("output", "", "merged PDF name for -mode=export")
        workers = flag.Int("workers", 0, "worker count override")
        lang    = flag.String("lang", "", "OCR language override")
        serve   = flag.Bool("serve", false, "run the HTTP API and queue consumer")
    )
    flag.Parse()

    cfg := config.FromEnv()
    settingsPath := config.SettingsPath()
    settings, settingsErr := config.LoadSettings(settingsPath)
    cfg.Merge(settings)

    if *lang != "" { cfg.OCR.Lang = *lang }
    if *workers > 0 { cfg.Pipeline.Workers = *workers }

    // The menu owns the terminal, so its logs go to file only.
    interactive := !*serve && *folder == ""

    _ = logger.Init(logger.Options{
        Level:        cfg.Logging.Level,
        Pretty:       cfg.Logging.Pretty,
        Console:      !interactive,
        File:         cfg.Logging.File,
        MaxSizeMB:    cfg.Logging.MaxSizeMB,
        MaxBackups:   cfg.Logging.MaxBackups,
        MaxAgeDays:   cfg.Logging.MaxAgeDays,
        Compress:     cfg.Logging.Compress,
        SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey:  cfg.Axiom.APIKey,
        AxiomOrgID:   cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush:   cfg.Axiom.FlushInterval,
    })
    defer logger.Close()
    metrics.Init()

    if settingsErr != nil {
        log.Warn().Err(settingsErr).Str("path", settingsPath).Msg("settings file unreadable, using defaults")
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    switch {
    case *serve:
        if err := runServe(ctx, cfg); err != nil {
            log.Fatal().Err(err).Msg("serve failed")
        }
    case *folder != "":
        runner := newRunner(ocr.New(engineConfig(cfg)), cfg)
        if err := runOnce(ctx, runner, *mode, *folder, *output); err != nil {
            log.Fatal().Err(err).Str("mode", *mode).Msg("run failed")
        }
    default:
        build := func(s config.Settings) *orchestrator.Runner {
            c := cfg
            if s.TesseractPath != "" { c.OCR.BinaryPath = s.TesseractPath }
            if s.OCRLang != "" { c.OCR.Lang = s.OCRLang }
            if s.MaxWorkers > 0 { c.Pipeline.Workers = s.MaxWorkers }
            c.OCR.ExtraArgs = s.ExtraArgs
            c.OCR.Slots = c.Pipeline.Workers
            return newRunner(ocr.New(engineConfig(c)), c)
        }
        m := menu.New(settings, settingsPath, build)
        if err := m.Run(ctx); err != nil && ctx.Err() == nil {
            log.Error().Err(err).Msg("menu exited")
        }
    }
}

func engineConfig(cfg config.Config) ocr.Config {
    return ocr.Config{
        BinaryPath: cfg.OCR.BinaryPath,
        Slots:      cfg.OCR.Slots,
        Timeout:    cfg.OCR.Timeout,
    }
}

func newRunner(eng pipeline.Engine, cfg config.Config) *orchestrator.Runner {
    return orchestrator.New(eng, orchestrator.Config{
        Lang:           cfg.OCR.Lang,
        ExtraArgs:      cfg.OCR.ExtraArgs,
        Workers:        cfg.Pipeline.Workers,
        HashGrid:       cfg.Pipeline.HashGrid,
        HashDistance:   cfg.Pipeline.HashDistance,
        HeaderFraction: cfg.Pipeline.HeaderFraction,
        FooterFraction: cfg.Pipeline.FooterFraction,
        KeepPagePDFs:   cfg.Pipeline.KeepPagePDFs,
        RenderDPI:      cfg.OCR.RenderDPI,
    })
}

func runOnce(ctx context.Context, r *orchestrator.Runner, mode, folder, output string) error {
    switch mode {
    case "", "group":
        rep, path, err := r.RunGroup(ctx, folder)
        if err != nil { return err }
        fmt.Printf("grouped %d pages into %d documents, report: %s\n", rep.Succeeded, len(rep.Documents), path)
    case "text":
        rep, path, err := r.RunText(ctx, folder)
        if err != nil { return err }
        fmt.Printf("processed %d files (%d failed), report: %s\n", rep.Succeeded, rep.Failed, path)
    case "export":
        out, err := r.RunExport(ctx, folder, output)
        if err != nil { return err }
        fmt.Println(out)
    default:
        return fmt.Errorf("unknown mode %q", mode)
    }
    return nil
}

func runServe(ctx context.Context, cfg config.Config) error {
    q, err := queue.New(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.Consumer, cfg.Queue.PollInterval)
    if err != nil { return fmt.Errorf("connect queue: %w", err) }
    defer q.Close()

    st, err := store.NewRunStore(cfg.Queue.RedisURL)
    if err != nil { return fmt.Errorf("init status store: %w", err) }

    eng := ocr.New(engineConfig(cfg))

    var pipeEng pipeline.Engine = eng
    if cache, cerr := store.NewTextCache(cfg.Queue.RedisURL, 0); cerr != nil {
        log.Warn().Err(cerr).Msg("text cache unavailable, recognizing every page")
    } else {
        pipeEng = orchestrator.WithTextCache(eng, cache)
    }

    cons := &orchestrator.Consumer{
        Queue:  q,
        Status: st,
        Runner: newRunner(pipeEng, cfg),
        Poll:   cfg.Queue.PollInterval,
    }
    if cfg.Archive.Bucket != "" {
        up, aerr := archive.New(ctx, cfg.Archive)
        if aerr != nil { return fmt.Errorf("init archive: %w", aerr) }
        cons.Archive = up
    } else {
        log.Info().Msg("archive disabled, no bucket configured")
    }

    checker := statuscheck.New(statuscheck.Options{Redis: q, Engine: eng, Archive: cfg.Archive})
    srv := web.New(q, st, checker)
    mux := http.NewServeMux()
    srv.RegisterRoutes(mux)

    go cons.Run(ctx)
    go orchestrator.CleanupLoop(ctx, time.Hour, cfg.CleanupMaxAge)

    httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
    errCh := make(chan error, 1)
    go func() {
        log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
        if serr := httpSrv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
            errCh <- serr
        }
    }()

    select {
    case serr := <-errCh:
        return serr
    case <-ctx.Done():
    }

    shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = httpSrv.Shutdown(shutCtx)
    log.Info().Msg("shutdown complete")
    return nil
}
