package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"riverlog/internal/astro"
	"riverlog/internal/core"
	"riverlog/internal/types"
)

// EntryRepo is the persistence surface the journal entry handler needs.
type EntryRepo interface {
	Create(ctx context.Context, entry *types.JournalEntry) error
	GetByID(ctx context.Context, id string, userID string) (*types.JournalEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*types.JournalEntry, error)
	Update(ctx context.Context, entry *types.JournalEntry) error
	UpdateCachedFlow(ctx context.Context, id string, userID string, series *types.FlowSeries) error
	Delete(ctx context.Context, id string, userID string) error
}

// EntryFlowResolver resolves hourly flow series for the flow graph.
type EntryFlowResolver interface {
	ResolveHourlySeries(ctx context.Context, siteNumber string, date time.Time) (*types.FlowSeries, error)
}

// EntryWeatherProvider captures current conditions for entries that carry
// coordinates but no client-supplied weather snapshot.
type EntryWeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
}

// EntryRequest is the request body for POST /v1/entries and
// PUT /v1/entries/{id}. Date uses the "2006-01-02" form.
type EntryRequest struct {
	Date      string   `json:"date" validate:"required"`
	City      string   `json:"city,omitempty" validate:"max=100"`
	State     string   `json:"state,omitempty" validate:"omitempty,len=2"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	Address   string   `json:"address,omitempty" validate:"max=300"`
	StartTime string   `json:"start_time,omitempty" validate:"max=10"`
	EndTime   string   `json:"end_time,omitempty" validate:"max=10"`

	RiverName     string   `json:"river_name,omitempty" validate:"max=200"`
	SiteNumber    string   `json:"site_number,omitempty" validate:"omitempty,usgs_site"`
	WaterTempF    *float64 `json:"water_temp_f,omitempty"`
	WaterFlowCfs  *float64 `json:"water_flow_cfs,omitempty"`
	TargetSpecies string   `json:"target_species,omitempty" validate:"max=100"`
	Angler        string   `json:"angler,omitempty" validate:"max=100"`
	FliesUsed     string   `json:"flies_used,omitempty" validate:"max=500"`
	Notes         string   `json:"notes,omitempty" validate:"max=10000"`

	// Optional client-captured weather. When absent and coordinates are
	// present, the server captures a snapshot itself.
	Weather *types.WeatherSnapshot `json:"weather,omitempty"`
}

// EntryHandler manages journal entry CRUD and flow series retrieval.
type EntryHandler struct {
	entries   EntryRepo
	flows     EntryFlowResolver
	weather   EntryWeatherProvider
	validator *core.Validator
	clock     types.Clock
	logger    *slog.Logger
}

func NewEntryHandler(entries EntryRepo, flows EntryFlowResolver, weather EntryWeatherProvider, v *core.Validator, clock types.Clock, l *slog.Logger) *EntryHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &EntryHandler{
		entries:   entries,
		flows:     flows,
		weather:   weather,
		validator: v,
		clock:     clock,
		logger:    l,
	}
}

// RegisterRoutes mounts entry routes on the provided chi.Router.
func (h *EntryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/entries", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/flow", h.Flow)
		})
	})
}

// Create handles POST /v1/entries.
//
// The moon phase is computed server-side from the entry date. When the
// entry carries coordinates and no weather snapshot, current conditions are
// captured. When it names a gauge site, the hourly flow series for the date
// is resolved and embedded; both captures are best effort and never block
// the save.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req EntryRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	entry := h.entryFromRequest(&req, date)
	entry.ID = "entry_" + uuid.NewString()
	entry.UserID = actor.UserID
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.MoonPhase = types.NewMoonPhase(astro.ComputePhase(date))

	h.captureEnvironment(r.Context(), entry, &req)

	if err := h.entries.Create(r.Context(), entry); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, entry)
}

// List handles GET /v1/entries, newest outing first.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	entries, err := h.entries.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, entries)
}

// Get handles GET /v1/entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	entry, err := h.entries.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, entry)
}

// Update handles PUT /v1/entries/{id}: a full replace of the editable
// fields. The moon phase is recomputed from the (possibly changed) date.
// The embedded flow series is cleared when the gauge site or date changed,
// so the next flow fetch re-resolves it.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req EntryRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	existing, err := h.entries.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	entry := h.entryFromRequest(&req, date)
	entry.ID = existing.ID
	entry.UserID = existing.UserID
	entry.CreatedAt = existing.CreatedAt
	entry.UpdatedAt = h.clock.Now()
	entry.MoonPhase = types.NewMoonPhase(astro.ComputePhase(date))

	if req.Weather == nil {
		entry.Weather = existing.Weather
	}
	sameGaugeDay := existing.SiteNumber == entry.SiteNumber && existing.Date.Equal(entry.Date)
	if sameGaugeDay {
		entry.CachedFlowData = existing.CachedFlowData
	}

	if err := h.entries.Update(r.Context(), entry); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, entry)
}

// Delete handles DELETE /v1/entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	if err := h.entries.Delete(r.Context(), chi.URLParam(r, "id"), actor.UserID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// Flow handles GET /v1/entries/{id}/flow: the hourly flow series for the
// entry's gauge and date, served from the embedded snapshot when present
// and resolved (then embedded, best effort) otherwise.
func (h *EntryHandler) Flow(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	entry, err := h.entries.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if entry.SiteNumber == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundFlow, "entry has no gauge site", nil))
		return
	}

	dateStr := entry.Date.Format("2006-01-02")
	if entry.CachedFlowData.Valid(entry.SiteNumber, dateStr) {
		core.JSON(w, r, http.StatusOK, entry.CachedFlowData)
		return
	}

	series, err := h.flows.ResolveHourlySeries(r.Context(), entry.SiteNumber, entry.Date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if series.Source != types.SourceSimulated {
		if err := h.entries.UpdateCachedFlow(r.Context(), entry.ID, actor.UserID, series); err != nil {
			h.logger.Warn("failed to embed flow series in entry", "entry_id", entry.ID, "error", err)
		}
	}
	core.JSON(w, r, http.StatusOK, series)
}

func (h *EntryHandler) entryFromRequest(req *EntryRequest, date time.Time) *types.JournalEntry {
	return &types.JournalEntry{
		Date:          date,
		City:          req.City,
		State:         req.State,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       req.Address,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		RiverName:     req.RiverName,
		SiteNumber:    req.SiteNumber,
		WaterTempF:    req.WaterTempF,
		WaterFlowCfs:  req.WaterFlowCfs,
		TargetSpecies: req.TargetSpecies,
		Angler:        req.Angler,
		FliesUsed:     req.FliesUsed,
		Notes:         req.Notes,
		Weather:       req.Weather,
	}
}

// captureEnvironment fills the weather and flow snapshots the request did
// not supply. Failures are logged and the entry saves without them.
func (h *EntryHandler) captureEnvironment(ctx context.Context, entry *types.JournalEntry, req *EntryRequest) {
	if entry.Weather == nil && h.weather != nil && req.Latitude != nil && req.Longitude != nil {
		snap, err := h.weather.Current(ctx, *req.Latitude, *req.Longitude)
		if err != nil {
			h.logger.Warn("failed to capture weather for entry", "error", err)
		} else {
			entry.Weather = snap
		}
	}

	if entry.SiteNumber != "" && h.flows != nil {
		series, err := h.flows.ResolveHourlySeries(ctx, entry.SiteNumber, entry.Date)
		if err != nil {
			h.logger.Warn("failed to capture flow series for entry",
				"site_number", entry.SiteNumber,
				"error", err,
			)
		} else if series.Source != types.SourceSimulated {
			entry.CachedFlowData = series
		}
	}
}
