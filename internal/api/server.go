// Package api exposes the operational HTTP interface for the service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/metrics"
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// CycleReporter exposes the most recent poll cycle.
type CycleReporter interface {
	LastReport() (snapshot.CycleReport, bool)
}

// Server wires the ops endpoints: health, metrics, and the last cycle report.
type Server struct {
	router   chi.Router
	reporter CycleReporter
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reporter CycleReporter, logger *zap.Logger) *Server {
	s := &Server{
		reporter: reporter,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/cycles/last", s.lastCycle)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The loop tolerates provider outages on its own; readiness only means
	// the process is serving.
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) lastCycle(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.reporter.LastReport()
	if !ok {
		writeError(s.logger, w, http.StatusNotFound, "no cycle has completed yet")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, report)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("write json response", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
