package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/rollcall/internal/backup"
)

// BackupHandler exposes snapshot status and on-demand snapshots.
type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeError(w, http.StatusConflict, "backups are not configured")
		return
	}

	key, err := h.manager.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("manual snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}
