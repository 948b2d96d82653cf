package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

const maxBodyBytes = 1 << 16

// SnapshotSource provides the current dashboard state.
type SnapshotSource interface {
	Snapshot() store.Snapshot
	sharedobs.ReadinessChecker
}

// Controller accepts filter changes and manual refreshes. UpdateFilter
// applies change to the filter current at the time of the update.
type Controller interface {
	UpdateFilter(change func(*domain.Filter)) (domain.Filter, error)
	Refresh()
}

// Server exposes health, readiness, metrics and the read-only dashboard API.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotSource
	controller Controller
	summaries  *SummaryCache
	logger     *slog.Logger
}

// filterRequest is the PUT /api/filter body. Omitted fields keep their
// current value.
type filterRequest struct {
	Location  *string `json:"location"`
	TimeRange *string `json:"time_range"`
}

// NewServer creates an HTTP server with health, metrics and /api routes.
func NewServer(addr string, snapshots SnapshotSource, controller Controller, summaries *SummaryCache, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots:  snapshots,
		controller: controller,
		summaries:  summaries,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(snapshots))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("PUT /api/filter", s.handleFilter)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshots.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.summaries.Get(s.snapshots.Snapshot()))
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter body: "+err.Error())
		return
	}

	f, err := s.controller.UpdateFilter(func(f *domain.Filter) {
		if req.Location != nil {
			f.Location = *req.Location
		}
		if req.TimeRange != nil {
			f.TimeRange = domain.TimeRange(*req.TimeRange)
		}
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("set filter failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply filter")
		return
	}
	writeJSON(w, http.StatusAccepted, f)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.controller.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
