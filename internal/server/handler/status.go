package handler

import (
	"net/http"

	"clobdeck/internal/session"
)

// StatusSource reports the connection state of the push channels.
type StatusSource interface {
	Status() session.Status
}

// StatusHandler serves the push-channel connection status.
type StatusHandler struct {
	status StatusSource
}

// NewStatusHandler creates a StatusHandler reading from the given source.
func NewStatusHandler(status StatusSource) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the current state of both push channels.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	writeJSON(w, http.StatusOK, map[string]string{
		"market": st.Market.String(),
		"user":   st.User.String(),
	})
}
