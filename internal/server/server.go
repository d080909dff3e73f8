// Package server exposes the board store over HTTP: the JSON endpoints the
// remote client calls, a websocket change feed per project, and /metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"clarity-board/internal/logging"
	"clarity-board/internal/model"
	"clarity-board/internal/realtime"
	"clarity-board/internal/remote"
	"clarity-board/internal/store"
	"clarity-board/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type Server struct {
	addr  string
	store *store.Store
	local *remote.Local
	hub   *realtime.Hub
	log   *logging.Logger
}

type Option func(*Server)

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHub shares an existing hub, so in-process writers can publish too.
func WithHub(h *realtime.Hub) Option {
	return func(s *Server) {
		if h != nil {
			s.hub = h
		}
	}
}

func New(addr string, st *store.Store, opts ...Option) (*Server, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("server: addr is empty")
	}
	if st == nil {
		return nil, errors.New("server: store is nil")
	}
	s := &Server{addr: addr, store: st, hub: realtime.NewHub(), log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("server")
	s.local = remote.NewLocal(st,
		remote.WithLocalLogger(s.log),
		remote.WithNotifier(func(table, projectID string) {
			realtimeEvents.WithLabelValues(table).Inc()
			s.hub.Notify(table, projectID)
		}),
	)
	return s, nil
}

func (s *Server) Addr() string { return s.addr }

func (s *Server) Hub() *realtime.Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("GET /health", s.handleHealth)
	handle("GET /projects", s.handleProjects)
	handle("POST /projects", s.handleProjectCreate)
	handle("GET /projects/{projectId}", s.handleProject)
	handle("GET /projects/{projectId}/columns", s.handleColumns)
	handle("GET /projects/{projectId}/stats/assignees", s.handleAssigneeCounts)
	handle("POST /columns", s.handleColumnCreate)
	handle("PATCH /columns/{columnId}", s.handleColumnPatch)
	handle("DELETE /columns/{columnId}", s.handleColumnDelete)
	handle("POST /tasks", s.handleTaskCreate)
	handle("PATCH /tasks/{taskId}", s.handleTaskPatch)
	handle("DELETE /tasks/{taskId}", s.handleTaskDelete)

	// Not instrumented: the recorder would hide the Hijacker the upgrade needs.
	mux.HandleFunc("GET /projects/{projectId}/ws", s.handleWS)
	mux.Handle("GET /metrics", s.metricsHandler())
	return mux
}

func (s *Server) metricsHandler() http.Handler {
	if h := telemetry.MetricsHandler(); h != nil {
		return h
	}
	return promhttp.Handler()
}

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("board server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, s.local.ListProjects(r.Context()))
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var in model.NewProject
	if !decodeBody(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, s.local.CreateProject(ctx, in))
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, s.local.FetchProject(r.Context(), r.PathValue("projectId")))
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, s.local.FetchColumns(r.Context(), r.PathValue("projectId")))
}

func (s *Server) handleAssigneeCounts(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, s.local.FetchAssigneeCounts(r.Context(), r.PathValue("projectId")))
}

func (s *Server) handleColumnCreate(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var in model.NewColumn
	if !decodeBody(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, s.local.CreateColumn(ctx, in))
}

func (s *Server) handleColumnPatch(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var in model.ColumnPatch
	if !decodeBody(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, s.local.PatchColumn(ctx, r.PathValue("columnId"), in))
}

func (s *Server) handleColumnDelete(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	writeResult(w, http.StatusOK, s.local.DeleteColumn(ctx, r.PathValue("columnId")))
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var in model.NewTask
	if !decodeBody(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, s.local.CreateTask(ctx, in))
}

func (s *Server) handleTaskPatch(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var in model.TaskPatch
	if !decodeBody(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, s.local.PatchTask(ctx, r.PathValue("taskId"), in))
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.authorize(w, r)
	if !ok {
		return
	}
	writeResult(w, http.StatusOK, s.local.DeleteTask(ctx, r.PathValue("taskId")))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	if res := s.local.FetchProject(r.Context(), projectID); !res.OK {
		writeResult(w, http.StatusOK, res)
		return
	}
	s.hub.ServeWS(w, r, projectID, s.log)
}

// authorize requires a bearer identity and attaches it to the request context.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	actor := bearerActor(r)
	if actor == "" {
		writeError(w, http.StatusUnauthorized, remote.NotAuthenticated)
		return nil, false
	}
	return remote.ContextWithActor(r.Context(), actor), true
}

func bearerActor(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeResult[T any](w http.ResponseWriter, okStatus int, res remote.Result[T]) {
	if !res.OK {
		status := res.Status
		if status == 0 {
			// Store call canceled or timed out.
			status = http.StatusServiceUnavailable
		}
		msg := ""
		if res.Err != nil {
			msg = res.Err.Message
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, okStatus, res.Data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if strings.TrimSpace(msg) == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, remote.TypedError{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
