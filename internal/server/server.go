// Package server provides the local inspect server: a read-mostly HTTP API
// over a Unix socket that exposes the reconciled state and component health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/inspect"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Backend is what the server exposes. *engine.Engine implements it.
type Backend interface {
	Store() *store.Store
	ConnectionState() connection.State
	Pollers() []poller.Health
	StartedAt() time.Time
	Refetch(name string) error
	Reconnect()
	StartTask(ctx context.Context, id string) error
	StopTask(ctx context.Context, id string) error
}

// Server manages the inspect HTTP server over a Unix socket.
type Server struct {
	logger  *logrus.Entry
	backend Backend
	server  *http.Server
}

// New creates a new Server instance.
func New(backend Backend, logger *logrus.Entry) *Server {
	s := &Server{
		logger:  logger,
		backend: backend,
	}
	s.server = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed API without the h2c wrapper.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("GET /api/events", s.handleGetEvents)
	mux.HandleFunc("GET /api/pollers", s.handleGetPollers)
	mux.HandleFunc("POST /api/pollers/{name}/refetch", s.handleRefetch)
	mux.HandleFunc("GET /api/connection", s.handleGetConnection)
	mux.HandleFunc("POST /api/connection/reconnect", s.handleReconnect)
	mux.HandleFunc("POST /api/tasks/{id}/{action}", s.handleTaskAction)
	mux.HandleFunc("GET /api/stream", s.handleStreamState)
	return mux
}

// ListenAndServe serves on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	listener, err := Listen(socketPath)
	if err != nil {
		return err
	}
	s.logger.WithField("socket", socketPath).Info("Inspect server listening")
	return s.Serve(listener)
}

// Serve accepts connections on l. It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Listen creates a Unix socket listener, removing a stale socket file first.
func Listen(socketPath string) (net.Listener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return listener, nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down inspect server")
	return s.server.Shutdown(ctx)
}

func (s *Server) snapshot() inspect.Snapshot {
	st := s.backend.Store()
	return inspect.Snapshot{
		State:      st.Snapshot(),
		Connection: s.backend.ConnectionState(),
		Pollers:    s.backend.Pollers(),
		Derived: inspect.Derived{
			HighPriorityCount:  st.HighPriorityCount(),
			DistinctStoreCount: st.DistinctStoreCount(),
			RunningTaskCount:   st.RunningTaskCount(),
		},
		StartedAt: s.backend.StartedAt(),
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleGetEvents filters the feed. Query parameters: priority, store
// (repeatable pattern), q, since (RFC 3339).
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{
		Priority:      models.Priority(strings.ToLower(q.Get("priority"))),
		StorePatterns: q["store"],
		Query:         q.Get("q"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "since must be an RFC 3339 timestamp"))
			return
		}
		filter.Since = t
	}

	events, err := s.backend.Store().FilterEvents(filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid event filter"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetPollers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Pollers())
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.backend.Refetch(name); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.WithField("poller", name).Debug("Refetch requested")
	writeJSON(w, http.StatusAccepted, inspect.ActionResult{OK: true})
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.ConnectionState())
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	s.backend.Reconnect()
	writeJSON(w, http.StatusAccepted, inspect.ActionResult{OK: true})
}

func (s *Server) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var err error
	switch action := r.PathValue("action"); action {
	case "start":
		err = s.backend.StartTask(r.Context(), id)
	case "stop":
		err = s.backend.StopTask(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown task action %q", action)))
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errors.ErrCodeInvalidInput) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, inspect.ActionResult{OK: true})
}

// handleStreamState provides Server-Sent Events (SSE) for real-time state updates.
// Every message carries a full snapshot; bursts of store updates are coalesced.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st := s.backend.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	send := func(u inspect.StreamUpdate) bool {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(inspect.StreamUpdate{UpdateType: "initial", Snapshot: s.snapshot()}) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			update = drain(ch, update)
			if !send(inspect.StreamUpdate{
				UpdateType: string(update.Type),
				Op:         update.Op,
				Snapshot:   s.snapshot(),
			}) {
				return
			}
		}
	}
}

// drain returns the newest update already queued on ch.
func drain(ch <-chan store.Update, last store.Update) store.Update {
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return last
			}
			last = u
		default:
			return last
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errors.Classify(err))
}
