package handlers

import (
	"net/http"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
)

// Health reports whether the monitor loop is still live. A stopped or
// stopping monitor answers 503 so load balancers and probes notice.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	switch st := h.monitor.State(); st {
	case monitor.StateIdle, monitor.StateRunning:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": string(st)})
	default:
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped", "state": string(st)})
	}
}
