package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"riverlog/internal/astro"
	"riverlog/internal/core"
	"riverlog/internal/hydro"
	"riverlog/internal/types"
)

// GaugeFlowResolver resolves flow values and hourly series for arbitrary
// gauge sites. Mirrors hydro.Resolver.
type GaugeFlowResolver interface {
	ResolveFlow(ctx context.Context, siteNumber string, date time.Time) (*types.FlowValue, error)
	ResolveHourlySeries(ctx context.Context, siteNumber string, date time.Time) (*types.FlowSeries, error)
}

// WeatherProvider resolves current conditions for a coordinate pair.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
}

// MoonResponse is the payload for GET /v1/moon.
type MoonResponse struct {
	Date    string           `json:"date"`
	Phase   types.LunarPhase `json:"phase"`
	Display string           `json:"display"`
}

// FlowResponse is the payload for GET /v1/gauges/{site}/flow. Flow is the
// whole-number CFS string or the "No Data" sentinel.
type FlowResponse struct {
	SiteNumber string           `json:"site_number"`
	Date       string           `json:"date"`
	Flow       string           `json:"flow"`
	Source     types.FlowSource `json:"source,omitempty"`
	Simulated  bool             `json:"simulated"`
}

// EnvironmentHandler serves the public environmental-data endpoints: moon
// phase, current weather, gauge flow lookups, and site search. These work
// without an account so the entry form can populate before login.
type EnvironmentHandler struct {
	flows   GaugeFlowResolver
	weather WeatherProvider
	clock   types.Clock
	logger  *slog.Logger
}

func NewEnvironmentHandler(flows GaugeFlowResolver, weather WeatherProvider, clock types.Clock, l *slog.Logger) *EnvironmentHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &EnvironmentHandler{flows: flows, weather: weather, clock: clock, logger: l}
}

// RegisterRoutes mounts environment routes on the provided chi.Router.
func (h *EnvironmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/moon", h.Moon)
	r.Get("/weather", h.Weather)
	r.Get("/sites/search", h.SearchSites)
	r.Get("/sites/popular", h.PopularSites)
	r.Route("/gauges/{site}", func(r chi.Router) {
		r.Get("/flow", h.Flow)
		r.Get("/hourly", h.Hourly)
	})
}

// Moon handles GET /v1/moon?date=. An absent date means today.
func (h *EnvironmentHandler) Moon(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	phase := astro.ComputePhase(date)
	core.JSON(w, r, http.StatusOK, MoonResponse{
		Date:    date.Format("2006-01-02"),
		Phase:   phase,
		Display: phase.Display(),
	})
}

// Weather handles GET /v1/weather?lat=&lon=.
func (h *EnvironmentHandler) Weather(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	lon, err := floatParam(r, "lon")
	if err != nil {
		core.Error(w, r, err)
		return
	}

	snap, err := h.weather.Current(r.Context(), lat, lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, snap)
}

// Flow handles GET /v1/gauges/{site}/flow?date=: a single resolved flow
// value for the site and date.
func (h *EnvironmentHandler) Flow(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	if !core.ValidSiteNumber(site) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidSite, "site number must be 8 to 15 digits", nil))
		return
	}
	date, err := h.dateParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	value, err := h.flows.ResolveFlow(r.Context(), site, date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := FlowResponse{
		SiteNumber: site,
		Date:       date.Format("2006-01-02"),
		Flow:       string(types.FlowNoData),
	}
	if value != nil {
		resp.Flow = value.Display()
		resp.Source = value.Source
		resp.Simulated = value.Simulated()
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// Hourly handles GET /v1/gauges/{site}/hourly?date=: the 24-slot hourly
// series for the flow graph.
func (h *EnvironmentHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	if !core.ValidSiteNumber(site) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidSite, "site number must be 8 to 15 digits", nil))
		return
	}
	date, err := h.dateParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	series, err := h.flows.ResolveHourlySeries(r.Context(), site, date)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, series)
}

// SearchSites handles GET /v1/sites/search?q=.
func (h *EnvironmentHandler) SearchSites(w http.ResponseWriter, r *http.Request) {
	sites, err := hydro.SearchSites(r.URL.Query().Get("q"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, sites)
}

// PopularSites handles GET /v1/sites/popular: the curated gauge directory.
func (h *EnvironmentHandler) PopularSites(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, hydro.PopularSites())
}

// dateParam reads the optional ?date= query parameter, defaulting to today.
func (h *EnvironmentHandler) dateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		now := h.clock.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parseDate(raw)
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, types.NewAppError(types.ErrCodeValidationMissingField, name+" is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidCoords, name+" must be a number", err)
	}
	return v, nil
}
