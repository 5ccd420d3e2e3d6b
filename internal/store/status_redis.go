package store

import (
    "context"
    "fmt"
    "strconv"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Run status entries outlive the run long enough for callers to collect
// results, then expire on their own.
const statusTTL = 7 * 24 * time.Hour

// RunStatus mirrors the redis hash kept per run.
type RunStatus struct {
    State     string // queued, running, done, failed, cancelled
    Message   string
    Folder    string
    Mode      string
    Processed int
    Succeeded int
    Failed    int
    Report    string // report path for group/text, export PDF for export
    Start     *time.Time
    End       *time.Time
}

// RunStore keeps per-run status hashes in redis.
type RunStore struct {
    client *redis.Client
}

func NewRunStore(redisURL string) (*RunStore, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    return &RunStore{client: c}, nil
}

func (s *RunStore) Close() error { return s.client.Close() }

func (s *RunStore) key(runID string) string { return fmt.Sprintf("run:%s:status", runID) }

// Set writes the full status hash and refreshes its TTL.
func (s *RunStore) Set(ctx context.Context, runID string, st RunStatus) error {
    m := map[string]any{
        "state":     st.State,
        "message":   st.Message,
        "folder":    st.Folder,
        "mode":      st.Mode,
        "processed": st.Processed,
        "succeeded": st.Succeeded,
        "failed":    st.Failed,
        "report":    st.Report,
    }
    if st.Start != nil { m["start"] = st.Start.Format(time.RFC3339Nano) }
    if st.End != nil { m["end"] = st.End.Format(time.RFC3339Nano) }
    key := s.key(runID)
    if err := s.client.HSet(ctx, key, m).Err(); err != nil { return err }
    return s.client.Expire(ctx, key, statusTTL).Err()
}

// Get reads the status hash. ok is false when the run is unknown.
func (s *RunStore) Get(ctx context.Context, runID string) (RunStatus, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
    if err != nil { return RunStatus{}, false, err }
    if len(res) == 0 { return RunStatus{}, false, nil }
    st := RunStatus{
        State:   res["state"],
        Message: res["message"],
        Folder:  res["folder"],
        Mode:    res["mode"],
        Report:  res["report"],
    }
    st.Processed, _ = strconv.Atoi(res["processed"])
    st.Succeeded, _ = strconv.Atoi(res["succeeded"])
    st.Failed, _ = strconv.Atoi(res["failed"])
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.End = &t }
    }
    return st, true, nil
}
