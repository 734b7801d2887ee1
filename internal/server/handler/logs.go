package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
)

// LogsHandler serves the session log: the bounded display window for the
// dashboard, the full archive as a download, and a clear operation that
// wipes both.
type LogsHandler struct {
	store  *logstore.Store
	logger *slog.Logger
}

// NewLogsHandler creates a LogsHandler over the given store.
func NewLogsHandler(store *logstore.Store, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{store: store, logger: logger}
}

// ListLogs returns the display window, or the full archive with ?all=true.
// GET /api/logs
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	var entries []domain.LogEntry
	if r.URL.Query().Get("all") == "true" {
		entries = h.store.All()
	} else {
		entries = h.store.Display()
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   h.store.Len(),
	})
}

// ExportLogs downloads the full archive as a dated JSON attachment.
// GET /api/logs/export
func (h *LogsHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Export()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: log export failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to export logs")
		return
	}

	filename := fmt.Sprintf("logs-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ClearLogs wipes both the archive and the display window.
// DELETE /api/logs
func (h *LogsHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
