package orchestrator

import (
    "context"
    "fmt"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/scansort/internal/metrics"
    "github.com/local/scansort/internal/queue"
    "github.com/local/scansort/internal/report"
    "github.com/local/scansort/internal/store"
)

// JobQueue is the queue surface the consumer needs. *queue.Queue satisfies
// it.
type JobQueue interface {
    Dequeue(ctx context.Context, block time.Duration) (queue.Message, bool, error)
    Ack(ctx context.Context, msgID string) error
    EnqueueDelayed(ctx context.Context, job queue.Job, delay time.Duration) error
    DeadLetter(ctx context.Context, msg queue.Message, reason string) error
    IsCancelled(ctx context.Context, runID string) (bool, error)
    Depths(ctx context.Context) (queue.Depths, error)
}

// StatusStore records run state transitions. *store.RunStore satisfies it.
type StatusStore interface {
    Set(ctx context.Context, runID string, st store.RunStatus) error
}

// Archiver uploads finished run artifacts. *archive.Uploader satisfies it.
type Archiver interface {
    UploadRun(ctx context.Context, runID, reportPath string, docs []report.Document) error
}

// A run gets this many delayed retries before it dead-letters.
const maxRetries = 3

// Consumer works queued runs one at a time: dequeue, check cancellation,
// execute, record status, archive, ack.
type Consumer struct {
    Queue   JobQueue
    Status  StatusStore
    Runner  *Runner
    Archive Archiver // nil disables archiving
    Poll    time.Duration
}

// Run consumes until the context ends. Dequeue errors back off and retry;
// they never kill the loop.
func (c *Consumer) Run(ctx context.Context) {
    poll := c.Poll
    if poll <= 0 { poll = 5 * time.Second }
    log.Info().Dur("poll", poll).Msg("consumer started")
    for {
        if ctx.Err() != nil {
            log.Info().Msg("consumer stopped")
            return
        }
        c.reportDepths(ctx)
        msg, ok, err := c.Queue.Dequeue(ctx, poll)
        if err != nil {
            if ctx.Err() != nil { continue }
            log.Error().Err(err).Msg("dequeue failed")
            select {
            case <-ctx.Done():
            case <-time.After(poll):
            }
            continue
        }
        if !ok { continue }
        c.handle(ctx, msg)
    }
}

func (c *Consumer) handle(ctx context.Context, msg queue.Message) {
    job := msg.Job
    lg := log.With().Str("run_id", job.RunID).Str("folder", job.Folder).Str("mode", job.Mode).Logger()

    if cancelled, _ := c.Queue.IsCancelled(ctx, job.RunID); cancelled {
        lg.Info().Msg("run cancelled before start")
        _ = c.Status.Set(ctx, job.RunID, store.RunStatus{
            State: "cancelled", Message: "cancelled before start", Folder: job.Folder, Mode: job.Mode,
        })
        _ = c.Queue.Ack(ctx, msg.ID)
        metrics.JobProcessed("cancelled")
        return
    }

    start := time.Now()
    _ = c.Status.Set(ctx, job.RunID, store.RunStatus{
        State: "running", Folder: job.Folder, Mode: job.Mode, Start: &start,
    })
    lg.Info().Int("attempt", job.Retries+1).Msg("run started")

    rep, artifact, err := c.execute(ctx, job)
    end := time.Now()
    if err != nil {
        lg.Error().Err(err).Msg("run failed")
        c.retryOrDrop(ctx, msg, err, start, end, rep)
        return
    }

    st := store.RunStatus{
        State: "done", Folder: job.Folder, Mode: job.Mode,
        Report: artifact, Start: &start, End: &end,
    }
    if rep != nil {
        st.Processed, st.Succeeded, st.Failed = rep.Processed, rep.Succeeded, rep.Failed
    }
    if c.Archive != nil && rep != nil && len(rep.Documents) > 0 {
        if aerr := c.Archive.UploadRun(ctx, job.RunID, artifact, rep.Documents); aerr != nil {
            lg.Error().Err(aerr).Msg("archive upload failed")
            st.Message = "archive upload failed: " + aerr.Error()
        }
    }
    _ = c.Status.Set(ctx, job.RunID, st)
    _ = c.Queue.Ack(ctx, msg.ID)
    metrics.JobProcessed("success")
    lg.Info().Dur("took", end.Sub(start)).Msg("run finished")
}

// execute dispatches the job to its driver. The artifact is the report path
// for group and text runs, the merged PDF for exports.
func (c *Consumer) execute(ctx context.Context, job queue.Job) (*report.Report, string, error) {
    r := c.Runner.WithJob(job.Lang, job.Workers)
    switch job.Mode {
    case "", "group":
        return r.RunGroup(ctx, job.Folder)
    case "text":
        return r.RunText(ctx, job.Folder)
    case "export":
        out, err := r.RunExport(ctx, job.Folder, "")
        return nil, out, err
    default:
        return nil, "", fmt.Errorf("unknown mode %q", job.Mode)
    }
}

// retryOrDrop schedules a delayed retry with linear backoff, or dead-letters
// the job once the attempts are spent.
func (c *Consumer) retryOrDrop(ctx context.Context, msg queue.Message, runErr error, start, end time.Time, rep *report.Report) {
    job := msg.Job
    st := store.RunStatus{
        State: "failed", Message: runErr.Error(), Folder: job.Folder, Mode: job.Mode,
        Start: &start, End: &end,
    }
    if rep != nil {
        st.Processed, st.Succeeded, st.Failed = rep.Processed, rep.Succeeded, rep.Failed
    }

    if job.Retries < maxRetries {
        retry := job
        retry.Retries++
        delay := time.Duration(retry.Retries) * 30 * time.Second
        if err := c.Queue.EnqueueDelayed(ctx, retry, delay); err == nil {
            st.State = "queued"
            st.Message = fmt.Sprintf("retry %d/%d in %s: %v", retry.Retries, maxRetries, delay, runErr)
            _ = c.Status.Set(ctx, job.RunID, st)
            _ = c.Queue.Ack(ctx, msg.ID)
            metrics.JobProcessed("retried")
            return
        }
    }

    _ = c.Queue.DeadLetter(ctx, msg, runErr.Error())
    _ = c.Status.Set(ctx, job.RunID, st)
    metrics.JobProcessed("failed")
}

func (c *Consumer) reportDepths(ctx context.Context) {
    d, err := c.Queue.Depths(ctx)
    if err != nil { return }
    metrics.SetQueueDepth("ready", d.Ready)
    metrics.SetQueueDepth("delayed", d.Delayed)
    metrics.SetQueueDepth("dead", d.Dead)
}
