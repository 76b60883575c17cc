package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/dwsmith1983/healthwatch/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.monitor)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Get("/health", h.Health)
		r.Get("/status", h.Status)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
}
