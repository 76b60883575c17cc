// Package handlers implements HTTP request handlers for the healthwatch status API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
)

// StatusSource is the read-only view of a monitor the handlers need.
type StatusSource interface {
	State() monitor.State
	Stats() monitor.Stats
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	monitor StatusSource
	logger  *slog.Logger
}

// New creates a new Handlers instance.
func New(mon StatusSource) *Handlers {
	return &Handlers{
		monitor: mon,
		logger:  slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}
