package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"riverlog/internal/core"
	"riverlog/internal/hydro"
	"riverlog/internal/types"
)

// maxAlertThresholdCfs bounds configurable alert thresholds. The largest
// US rivers peak in the low millions of CFS.
const maxAlertThresholdCfs = 10_000_000

// SavedRiverRepo is the persistence surface the river handler needs.
type SavedRiverRepo interface {
	Create(ctx context.Context, river *types.SavedRiver) error
	GetByID(ctx context.Context, id string, userID string) (*types.SavedRiver, error)
	ListByUser(ctx context.Context, userID string) ([]*types.SavedRiver, error)
	Delete(ctx context.Context, id string, userID string) error
	Stats(ctx context.Context, userID string) (*types.RiverDashboardStats, error)
}

// FlowRefresher re-resolves flow for saved rivers and evaluates alerts.
// Mirrors hydro.Refresher.
type FlowRefresher interface {
	RefreshRiver(ctx context.Context, river *types.SavedRiver) (*hydro.RefreshResult, error)
	RefreshForUser(ctx context.Context, userID string) ([]*hydro.RefreshResult, error)
}

// RiverAlertRepo manages per-site flow alert configs.
type RiverAlertRepo interface {
	Upsert(ctx context.Context, alert *types.FlowAlertConfig) error
	ListByUser(ctx context.Context, userID string, siteNumber string) ([]*types.FlowAlertConfig, error)
	DeleteKind(ctx context.Context, userID string, siteNumber string, kind types.AlertKind) error
}

// SaveRiverRequest is the request body for POST /v1/rivers.
type SaveRiverRequest struct {
	RiverName  string `json:"river_name" validate:"required,max=200"`
	SiteNumber string `json:"site_number" validate:"required,usgs_site"`
}

// AlertConfigRequest is one alert kind's setting within an alert update.
type AlertConfigRequest struct {
	Kind         types.AlertKind `json:"kind" validate:"required,oneof=high low flood"`
	ThresholdCfs float64         `json:"threshold_cfs"`
	Enabled      bool            `json:"enabled"`
}

// UpdateAlertsRequest is the request body for PUT /v1/rivers/{id}/alerts.
// A disabled kind removes its config row entirely.
type UpdateAlertsRequest struct {
	Alerts []AlertConfigRequest `json:"alerts" validate:"required,min=1,max=3,dive"`
}

// RiverHandler manages saved rivers, their flow refreshes, and alert
// configuration.
type RiverHandler struct {
	rivers    SavedRiverRepo
	refresher FlowRefresher
	alerts    RiverAlertRepo
	validator *core.Validator
	clock     types.Clock
	logger    *slog.Logger
}

func NewRiverHandler(rivers SavedRiverRepo, refresher FlowRefresher, alerts RiverAlertRepo, v *core.Validator, clock types.Clock, l *slog.Logger) *RiverHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &RiverHandler{
		rivers:    rivers,
		refresher: refresher,
		alerts:    alerts,
		validator: v,
		clock:     clock,
		logger:    l,
	}
}

// RegisterRoutes mounts river routes on the provided chi.Router.
func (h *RiverHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rivers", func(r chi.Router) {
		r.Post("/", h.Save)
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Post("/refresh-all", h.RefreshAll)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.Delete)
			r.Post("/refresh", h.Refresh)
			r.Get("/alerts", h.GetAlerts)
			r.Put("/alerts", h.UpdateAlerts)
		})
	})
}

// Save handles POST /v1/rivers. The new river is refreshed immediately so
// the dashboard shows a reading without waiting for the hourly job.
func (h *RiverHandler) Save(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req SaveRiverRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	river := &types.SavedRiver{
		ID:          "river_" + uuid.NewString(),
		UserID:      actor.UserID,
		RiverName:   req.RiverName,
		SiteNumber:  req.SiteNumber,
		CurrentFlow: string(types.FlowNoData),
		Trend:       types.TrendStable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.rivers.Create(r.Context(), river); err != nil {
		core.Error(w, r, err)
		return
	}

	if h.refresher != nil {
		if _, err := h.refresher.RefreshRiver(r.Context(), river); err != nil {
			h.logger.Warn("initial refresh failed for saved river",
				"river_id", river.ID,
				"site_number", river.SiteNumber,
				"error", err,
			)
		}
	}
	core.JSON(w, r, http.StatusCreated, river)
}

// List handles GET /v1/rivers.
func (h *RiverHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	rivers, err := h.rivers.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, rivers)
}

// Stats handles GET /v1/rivers/stats: dashboard summary numbers.
func (h *RiverHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	stats, err := h.rivers.Stats(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, stats)
}

// Delete handles DELETE /v1/rivers/{id}.
func (h *RiverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	if err := h.rivers.Delete(r.Context(), chi.URLParam(r, "id"), actor.UserID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// Refresh handles POST /v1/rivers/{id}/refresh: re-resolve one river's flow
// on demand.
func (h *RiverHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	river, err := h.rivers.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.refresher.RefreshRiver(r.Context(), river)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, result)
}

// RefreshAll handles POST /v1/rivers/refresh-all: re-resolve every saved
// river for the caller, with the refresher's built-in stagger.
func (h *RiverHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	results, err := h.refresher.RefreshForUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, results)
}

// GetAlerts handles GET /v1/rivers/{id}/alerts: the alert configs for the
// river's gauge site.
func (h *RiverHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	river, err := h.rivers.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	configs, err := h.alerts.ListByUser(r.Context(), actor.UserID, river.SiteNumber)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, configs)
}

// UpdateAlerts handles PUT /v1/rivers/{id}/alerts. Enabled kinds are
// upserted (which also resets their cooldown); disabled kinds are removed
// entirely so no dangling disabled rows remain.
func (h *RiverHandler) UpdateAlerts(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req UpdateAlertsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	river, err := h.rivers.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	for _, cfg := range req.Alerts {
		if !cfg.Enabled {
			if err := h.alerts.DeleteKind(r.Context(), actor.UserID, river.SiteNumber, cfg.Kind); err != nil {
				core.Error(w, r, err)
				return
			}
			continue
		}
		if cfg.ThresholdCfs <= 0 || cfg.ThresholdCfs > maxAlertThresholdCfs {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationThresholdRange,
				"threshold_cfs must be a positive flow value",
				nil,
			))
			return
		}
		if err := h.alerts.Upsert(r.Context(), &types.FlowAlertConfig{
			ID:           "alert_" + uuid.NewString(),
			UserID:       actor.UserID,
			SiteNumber:   river.SiteNumber,
			Kind:         cfg.Kind,
			ThresholdCfs: cfg.ThresholdCfs,
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	configs, err := h.alerts.ListByUser(r.Context(), actor.UserID, river.SiteNumber)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, configs)
}
