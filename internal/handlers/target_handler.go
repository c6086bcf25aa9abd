package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// TargetHandler handles watch target CRUD endpoints.
type TargetHandler struct {
	targets  interfaces.WatchTargetStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(targets interfaces.WatchTargetStorage, logger arbor.ILogger) *TargetHandler {
	return &TargetHandler{
		targets:  targets,
		validate: validator.New(),
		logger:   logger,
	}
}

// targetRequest is the create/update request body.
type targetRequest struct {
	OwnerID             string `json:"owner_id"`
	QueryKeyword        string `json:"query_keyword"`
	TargetType          string `json:"target_type"`
	MonitoringActive    *bool  `json:"monitoring_active"`
	NotificationChannel string `json:"notification_channel"`
}

// CollectionHandler dispatches /api/targets by method.
func (h *TargetHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTargets(w, r)
	case http.MethodPost:
		h.createTarget(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler dispatches /api/targets/{id} by method.
func (h *TargetHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "invalid target ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTarget(w, r, id)
	case http.MethodPut:
		h.updateTarget(w, r, id)
	case http.MethodDelete:
		h.deleteTarget(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TargetHandler) listTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.targets.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list watch targets")
		WriteError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"targets": targets,
		"count":   len(targets),
	})
}

func (h *TargetHandler) createTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active := true
	if req.MonitoringActive != nil {
		active = *req.MonitoringActive
	}

	target := &models.WatchTarget{
		ID:                  "wt_" + uuid.New().String(),
		OwnerID:             req.OwnerID,
		QueryKeyword:        strings.TrimSpace(req.QueryKeyword),
		TargetType:          req.TargetType,
		MonitoringActive:    active,
		NotificationChannel: models.NotificationChannel(strings.ToUpper(req.NotificationChannel)),
	}

	if err := h.validate.Struct(target); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.targets.Store(r.Context(), target); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create watch target")
		WriteError(w, http.StatusInternalServerError, "failed to create target")
		return
	}

	h.logger.Info().
		Str("target_id", target.ID).
		Str("keyword", target.QueryKeyword).
		Msg("Watch target created")

	WriteJSON(w, http.StatusCreated, target)
}

func (h *TargetHandler) getTarget(w http.ResponseWriter, r *http.Request, id string) {
	target, err := h.targets.Get(r.Context(), id)
	if errors.Is(err, interfaces.ErrTargetNotFound) {
		WriteError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("target_id", id).Msg("Failed to get watch target")
		WriteError(w, http.StatusInternalServerError, "failed to get target")
		return
	}

	WriteJSON(w, http.StatusOK, target)
}

func (h *TargetHandler) updateTarget(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.targets.Get(r.Context(), id)
	if errors.Is(err, interfaces.ErrTargetNotFound) {
		WriteError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("target_id", id).Msg("Failed to load watch target for update")
		WriteError(w, http.StatusInternalServerError, "failed to update target")
		return
	}

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OwnerID != "" {
		existing.OwnerID = req.OwnerID
	}
	if req.QueryKeyword != "" {
		existing.QueryKeyword = strings.TrimSpace(req.QueryKeyword)
	}
	if req.TargetType != "" {
		existing.TargetType = req.TargetType
	}
	if req.MonitoringActive != nil {
		existing.MonitoringActive = *req.MonitoringActive
	}
	if req.NotificationChannel != "" {
		existing.NotificationChannel = models.NotificationChannel(strings.ToUpper(req.NotificationChannel))
	}

	if err := h.validate.Struct(existing); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.targets.Store(r.Context(), existing); err != nil {
		h.logger.Error().Err(err).Str("target_id", id).Msg("Failed to update watch target")
		WriteError(w, http.StatusInternalServerError, "failed to update target")
		return
	}

	WriteJSON(w, http.StatusOK, existing)
}

func (h *TargetHandler) deleteTarget(w http.ResponseWriter, r *http.Request, id string) {
	err := h.targets.Delete(r.Context(), id)
	if errors.Is(err, interfaces.ErrTargetNotFound) {
		WriteError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("target_id", id).Msg("Failed to delete watch target")
		WriteError(w, http.StatusInternalServerError, "failed to delete target")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}
