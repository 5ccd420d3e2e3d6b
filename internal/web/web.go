package web

import (
    "context"
    "encoding/json"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/scansort/internal/metrics"
    "github.com/local/scansort/internal/queue"
    "github.com/local/scansort/internal/statuscheck"
    "github.com/local/scansort/internal/store"
)

// Enqueuer is the queue surface the API needs. *queue.Queue satisfies it.
type Enqueuer interface {
    Enqueue(ctx context.Context, job queue.Job) error
    CancelRun(ctx context.Context, runID string) error
}

// StatusStore is the run status surface. *store.RunStore satisfies it.
type StatusStore interface {
    Set(ctx context.Context, runID string, st store.RunStatus) error
    Get(ctx context.Context, runID string) (store.RunStatus, bool, error)
}

// Health produces the dependency summary for the health endpoint.
type Health interface {
    Summary(ctx context.Context) statuscheck.Summary
}

// Server is the serve-mode HTTP API: submit runs, poll status, health and
// metrics.
type Server struct {
    queue   Enqueuer
    status  StatusStore
    checker Health
}

func New(q Enqueuer, st StatusStore, checker Health) *Server {
    return &Server{queue: q, status: st, checker: checker}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/runs", s.handleCreateRun)
    mux.HandleFunc("/runs/", s.handleRun)
    mux.HandleFunc("/healthz", s.handleHealthz)
    mux.Handle("/metrics", metrics.Handler())
}

type createReq struct {
    Folder  string `json:"folder"`
    Mode    string `json:"mode"`
    Lang    string `json:"lang"`
    Workers int    `json:"workers"`
}

type createResp struct {
    RunID  string `json:"run_id"`
    Status string `json:"status"`
}

type runResp struct {
    RunID     string     `json:"run_id"`
    State     string     `json:"state"`
    Message   string     `json:"message,omitempty"`
    Folder    string     `json:"folder"`
    Mode      string     `json:"mode"`
    Processed int        `json:"processed"`
    Succeeded int        `json:"succeeded"`
    Failed    int        `json:"failed"`
    Report    string     `json:"report,omitempty"`
    Start     *time.Time `json:"start_time,omitempty"`
    End       *time.Time `json:"end_time,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    defer r.Body.Close()
    var req createReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest)
        return
    }
    if req.Folder == "" {
        http.Error(w, "missing folder", http.StatusBadRequest)
        return
    }
    if info, err := os.Stat(req.Folder); err != nil || !info.IsDir() {
        http.Error(w, "folder not found", http.StatusBadRequest)
        return
    }
    switch req.Mode {
    case "", "group", "text", "export":
    default:
        http.Error(w, "mode must be group, text or export", http.StatusBadRequest)
        return
    }

    job := queue.Job{
        RunID:   uuid.NewString(),
        Folder:  req.Folder,
        Mode:    req.Mode,
        Lang:    req.Lang,
        Workers: req.Workers,
    }
    _ = s.status.Set(r.Context(), job.RunID, store.RunStatus{
        State: "queued", Folder: job.Folder, Mode: job.Mode,
    })
    if err := s.queue.Enqueue(r.Context(), job); err != nil {
        log.Error().Err(err).Str("run_id", job.RunID).Msg("enqueue failed")
        http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
        return
    }
    log.Info().Str("run_id", job.RunID).Str("folder", job.Folder).Str("mode", job.Mode).Msg("run queued")
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusAccepted)
    _ = json.NewEncoder(w).Encode(createResp{RunID: job.RunID, Status: "queued"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
    runID := strings.TrimPrefix(r.URL.Path, "/runs/")
    if runID == "" || strings.Contains(runID, "/") {
        http.NotFound(w, r)
        return
    }
    switch r.Method {
    case http.MethodGet:
        s.getRun(w, r, runID)
    case http.MethodDelete:
        s.cancelRun(w, r, runID)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, runID string) {
    st, ok, err := s.status.Get(r.Context(), runID)
    if err != nil {
        http.Error(w, "status lookup failed", http.StatusServiceUnavailable)
        return
    }
    if !ok {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(runResp{
        RunID:     runID,
        State:     st.State,
        Message:   st.Message,
        Folder:    st.Folder,
        Mode:      st.Mode,
        Processed: st.Processed,
        Succeeded: st.Succeeded,
        Failed:    st.Failed,
        Report:    st.Report,
        Start:     st.Start,
        End:       st.End,
    })
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request, runID string) {
    if err := s.queue.CancelRun(r.Context(), runID); err != nil {
        http.Error(w, "cancel failed", http.StatusServiceUnavailable)
        return
    }
    log.Info().Str("run_id", runID).Msg("run cancelled")
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusAccepted)
    _ = json.NewEncoder(w).Encode(map[string]string{"run_id": runID, "status": "cancelling"})
}

// handleHealthz reports 200 while redis answers; a degraded tesseract is
// reported in the body but keeps the service alive, grouping of already
// rendered artifacts still works without it.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
    sum := s.checker.Summary(r.Context())
    w.Header().Set("Content-Type", "application/json")
    if !sum.Redis.OK {
        w.WriteHeader(http.StatusServiceUnavailable)
    }
    _ = json.NewEncoder(w).Encode(sum)
}
