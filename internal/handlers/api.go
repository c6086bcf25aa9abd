package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
	"github.com/GodsB1025/trade-monitor/internal/scanner"
)

// APIHandler handles health, version and status endpoints.
type APIHandler struct {
	targets   interfaces.WatchTargetStorage
	changes   interfaces.ChangeRecordStorage
	coord     interfaces.CoordinationStore
	logger    arbor.ILogger
	startTime time.Time
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	targets interfaces.WatchTargetStorage,
	changes interfaces.ChangeRecordStorage,
	coord interfaces.CoordinationStore,
	logger arbor.ILogger,
) *APIHandler {
	return &APIHandler{
		targets:   targets,
		changes:   changes,
		coord:     coord,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HealthHandler returns service liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.startTime).String(),
		"version": common.GetVersion(),
	})
}

// VersionHandler returns build information.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// queueDepths reports pending/processing lengths per channel.
type queueDepths struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
}

// StatusHandler returns operational counters: active targets, recorded
// changes, per-channel queue depths and whether a scan is running.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	activeTargets, err := h.targets.CountActive(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count active targets")
		WriteError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	changeCount, err := h.changes.Count(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count change records")
		WriteError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	queues := make(map[string]queueDepths)
	for _, channel := range models.AllChannels() {
		pending, err := h.coord.ListLen(ctx, models.PendingQueueKey(channel))
		if err != nil {
			h.logger.Error().Err(err).Str("channel", string(channel)).Msg("Failed to read pending queue depth")
			WriteError(w, http.StatusInternalServerError, "failed to read status")
			return
		}
		processing, err := h.coord.ListLen(ctx, models.ProcessingQueueKey(channel))
		if err != nil {
			h.logger.Error().Err(err).Str("channel", string(channel)).Msg("Failed to read processing queue depth")
			WriteError(w, http.StatusInternalServerError, "failed to read status")
			return
		}
		queues[string(channel)] = queueDepths{Pending: pending, Processing: processing}
	}

	scanRunning := true
	if _, err := h.coord.Get(ctx, scanner.ScanLockKey); err != nil {
		scanRunning = false
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"active_targets": activeTargets,
		"change_records": changeCount,
		"queues":         queues,
		"scan_running":   scanRunning,
		"uptime":         time.Since(h.startTime).String(),
	})
}
