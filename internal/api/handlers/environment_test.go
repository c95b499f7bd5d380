package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/astro"
	"riverlog/internal/types"
)

type mockGaugeResolver struct {
	resolveFlowFn   func(ctx context.Context, siteNumber string, date time.Time) (*types.FlowValue, error)
	resolveSeriesFn func(ctx context.Context, siteNumber string, date time.Time) (*types.FlowSeries, error)

	lastDate time.Time
}

func (m *mockGaugeResolver) ResolveFlow(ctx context.Context, siteNumber string, date time.Time) (*types.FlowValue, error) {
	m.lastDate = date
	if m.resolveFlowFn != nil {
		return m.resolveFlowFn(ctx, siteNumber, date)
	}
	return &types.FlowValue{
		Cfs:        1400,
		SiteNumber: siteNumber,
		Date:       date,
		Source:     types.SourceInstantaneous,
	}, nil
}

func (m *mockGaugeResolver) ResolveHourlySeries(ctx context.Context, siteNumber string, date time.Time) (*types.FlowSeries, error) {
	m.lastDate = date
	if m.resolveSeriesFn != nil {
		return m.resolveSeriesFn(ctx, siteNumber, date)
	}
	return hourlySeries(siteNumber, date.Format("2006-01-02"), types.SourceInstantaneous), nil
}

func newTestEnvHandler(flows *mockGaugeResolver, weather *mockEntryWeather) *EnvironmentHandler {
	return NewEnvironmentHandler(flows, weather, handlerClock{now: licenseNow}, nil)
}

func envRouter(h *EnvironmentHandler) *chi.Mux {
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestEnvironmentHandler_Moon(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/moon?date=2024-06-20", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp MoonResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "2024-06-20", resp.Date)

	want := astro.ComputePhase(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, want.Name, resp.Phase.Name)
	assert.Equal(t, want.Display(), resp.Display)
}

func TestEnvironmentHandler_Moon_DefaultsToToday(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/moon", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp MoonResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, licenseNow.Format("2006-01-02"), resp.Date)
}

func TestEnvironmentHandler_Moon_BadDate(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/moon?date=junk", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidDate), decodeErrorCode(t, rr))
}

func TestEnvironmentHandler_Weather(t *testing.T) {
	weather := &mockEntryWeather{
		currentFn: func(_ context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
			assert.Equal(t, 45.47, lat)
			assert.Equal(t, -111.24, lon)
			return &types.WeatherSnapshot{TempF: 68, Conditions: "clear sky"}, nil
		},
	}
	handler := newTestEnvHandler(&mockGaugeResolver{}, weather)

	req := httptest.NewRequest(http.MethodGet, "/weather?lat=45.47&lon=-111.24", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var snap types.WeatherSnapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, float64(68), snap.TempF)
}

func TestEnvironmentHandler_Weather_MissingParams(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/weather?lat=45.47", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationMissingField), decodeErrorCode(t, rr))
}

func TestEnvironmentHandler_Weather_NonNumericCoord(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/weather?lat=north&lon=-111.24", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidCoords), decodeErrorCode(t, rr))
}

func TestEnvironmentHandler_Flow(t *testing.T) {
	flows := &mockGaugeResolver{}
	handler := newTestEnvHandler(flows, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/gauges/06043500/flow?date=2024-06-20", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp FlowResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "06043500", resp.SiteNumber)
	assert.Equal(t, "2024-06-20", resp.Date)
	assert.Equal(t, "1400", resp.Flow)
	assert.Equal(t, types.SourceInstantaneous, resp.Source)
	assert.False(t, resp.Simulated)
}

func TestEnvironmentHandler_Flow_NoData(t *testing.T) {
	flows := &mockGaugeResolver{
		resolveFlowFn: func(_ context.Context, _ string, _ time.Time) (*types.FlowValue, error) {
			return nil, nil
		},
	}
	handler := newTestEnvHandler(flows, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/gauges/06043500/flow", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp FlowResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, string(types.FlowNoData), resp.Flow)
	assert.False(t, resp.Simulated)
}

func TestEnvironmentHandler_Flow_SimulatedAnnotated(t *testing.T) {
	flows := &mockGaugeResolver{
		resolveFlowFn: func(_ context.Context, site string, date time.Time) (*types.FlowValue, error) {
			return &types.FlowValue{Cfs: 312, SiteNumber: site, Date: date, Source: types.SourceSimulated}, nil
		},
	}
	handler := newTestEnvHandler(flows, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/gauges/06043500/flow", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp FlowResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "312", resp.Flow)
	assert.True(t, resp.Simulated)
}

func TestEnvironmentHandler_Flow_InvalidSite(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/gauges/garbage/flow", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidSite), decodeErrorCode(t, rr))
}

func TestEnvironmentHandler_Hourly(t *testing.T) {
	flows := &mockGaugeResolver{}
	handler := newTestEnvHandler(flows, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/gauges/06043500/hourly?date=2024-06-20", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var series types.FlowSeries
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&series))
	assert.Equal(t, "06043500", series.SiteNumber)
	assert.Len(t, series.Points, 24)
	assert.True(t, flows.lastDate.Equal(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)))
}

func TestEnvironmentHandler_SearchSites(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/sites/search?q=yuba", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var sites []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&sites))
	assert.NotEmpty(t, sites)
}

func TestEnvironmentHandler_SearchSites_ShortQuery(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/sites/search?q=ab", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationQueryTooShort), decodeErrorCode(t, rr))
}

func TestEnvironmentHandler_PopularSites(t *testing.T) {
	handler := newTestEnvHandler(&mockGaugeResolver{}, &mockEntryWeather{})

	req := httptest.NewRequest(http.MethodGet, "/sites/popular", nil)
	rr := httptest.NewRecorder()
	envRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var sites []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&sites))
	assert.NotEmpty(t, sites)
}
