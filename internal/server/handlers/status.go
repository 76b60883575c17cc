package handlers

import "net/http"

// Status returns the current session snapshot.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Stats())
}
