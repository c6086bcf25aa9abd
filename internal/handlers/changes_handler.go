package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
)

// ChangesHandler exposes the durable change history.
type ChangesHandler struct {
	changes interfaces.ChangeRecordStorage
	logger  arbor.ILogger
}

// NewChangesHandler creates a new changes handler.
func NewChangesHandler(changes interfaces.ChangeRecordStorage, logger arbor.ILogger) *ChangesHandler {
	return &ChangesHandler{
		changes: changes,
		logger:  logger,
	}
}

// ListHandler returns change records for a watch target, newest first.
// GET /api/changes?target_id=...&limit=...
func (h *ChangesHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	targetID := r.URL.Query().Get("target_id")
	if targetID == "" {
		WriteError(w, http.StatusBadRequest, "target_id is required")
		return
	}

	limit := GetLimitParam(r, 50, 500)

	records, err := h.changes.ListByTarget(r.Context(), targetID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("target_id", targetID).Msg("Failed to list change records")
		WriteError(w, http.StatusInternalServerError, "failed to list changes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"changes": records,
		"count":   len(records),
	})
}
