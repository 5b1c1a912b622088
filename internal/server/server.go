// Package server provides the optional status HTTP endpoint for liveness
// checks, Prometheus scraping and the last cycle summary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hnipps/huntarr/internal/arr"
	"github.com/hnipps/huntarr/pkg/models"
)

const shutdownTimeout = 5 * time.Second

// StatusSource provides the most recent cycle summary
type StatusSource interface {
	LastSummary() *models.CycleSummary
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Status    string               `json:"status"`
	Version   string               `json:"version"`
	LastCycle *models.CycleSummary `json:"lastCycle"`
}

// Server serves /health, /metrics and /api/v1/status
type Server struct {
	addr     string
	version  string
	source   StatusSource
	registry *prometheus.Registry
	logger   arr.Logger
	router   *mux.Router
}

// New creates a status server. A nil registry leaves /metrics unregistered.
func New(addr, version string, source StatusSource, registry *prometheus.Registry, logger arr.Logger) *Server {
	s := &Server{
		addr:     addr,
		version:  version,
		source:   source,
		registry: registry,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.statusHandler).Methods("GET")

	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs the server on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	s.logger.Info("🌐 Status server listening on %s", listener.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}
	s.logger.Debug("Status server stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.logger.Warn("Failed to write response: %v", err)
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:  "waiting",
		Version: s.version,
	}
	if s.source != nil {
		resp.LastCycle = s.source.LastSummary()
	}
	if resp.LastCycle != nil {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Error encoding status: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
