// Package server implements the healthwatch HTTP status server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dwsmith1983/healthwatch/internal/server/handlers"
)

// Server serves health, status and metrics for one monitor.
type Server struct {
	monitor handlers.StatusSource
	metrics http.Handler
	logger  *slog.Logger
	router  chi.Router
	addr    string
	srv     *http.Server
}

// New creates a server on addr. metrics may be nil to omit /metrics.
func New(addr string, mon handlers.StatusSource, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		monitor: mon,
		metrics: metrics,
		logger:  logger,
		addr:    addr,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	s.router = r
	s.registerRoutes(r)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Stop is called.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("status server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
