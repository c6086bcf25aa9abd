package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/scanner"
)

// MonitoringHandler exposes the scan cycle trigger endpoint.
type MonitoringHandler struct {
	orchestrator *scanner.Orchestrator
	logger       arbor.ILogger
}

// NewMonitoringHandler creates a new monitoring handler.
func NewMonitoringHandler(orchestrator *scanner.Orchestrator, logger arbor.ILogger) *MonitoringHandler {
	return &MonitoringHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// MonitoringResponse is the trigger endpoint's response body.
type MonitoringResponse struct {
	Status         string `json:"status"`
	MonitoredCount int    `json:"monitored_count"`
	UpdatesFound   int    `json:"updates_found"`
	LockStatus     string `json:"lock_status"`
}

// RunMonitoringHandler triggers one scan cycle synchronously. A cycle already
// in progress is a normal outcome and returns 200 with lock_status "busy";
// only a cycle that could not start at all is an error.
func (h *MonitoringHandler) RunMonitoringHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := h.orchestrator.RunCycle(r.Context())
	if errors.Is(err, scanner.ErrScanInProgress) {
		WriteJSON(w, http.StatusOK, MonitoringResponse{
			Status:     "skipped",
			LockStatus: "busy",
		})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Scan cycle failed to start")
		WriteError(w, http.StatusInternalServerError, "failed to run monitoring cycle")
		return
	}

	WriteJSON(w, http.StatusOK, MonitoringResponse{
		Status:         "success",
		MonitoredCount: result.Scanned,
		UpdatesFound:   result.ChangesFound,
		LockStatus:     "acquired",
	})
}
