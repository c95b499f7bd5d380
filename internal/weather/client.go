// Package weather resolves current conditions for a coordinate pair from
// OpenWeather, falling back to a simulated reading when the integration is
// unconfigured or the upstream call fails. Simulated snapshots are marked
// so the UI can annotate them.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"riverlog/internal/config"
	"riverlog/internal/external"
	"riverlog/internal/types"
)

// hPaToInHg converts hectopascals to inches of mercury.
const hPaToInHg = 0.02953

// windDirections is the 16-point compass rose, clockwise from north.
var windDirections = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Provider fetches current weather for a coordinate pair.
type Provider struct {
	base    *external.BaseClient
	baseURL string
	apiKey  types.SecretString
	clock   types.Clock
	logger  *slog.Logger
}

// NewProvider creates a Provider from config. An empty API key puts the
// provider in simulated-only mode.
func NewProvider(cfg config.WeatherConfig, clock types.Clock, logger *slog.Logger, opts ...external.BaseClientOption) *Provider {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := external.NewBaseClient(
		&http.Client{Timeout: cfg.Timeout},
		"openweather",
		external.DefaultRetryPolicy(),
		"riverlog/1.0",
		opts...,
	)
	return &Provider{
		base:    base,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		clock:   clock,
		logger:  logger,
	}
}

// openWeatherResponse mirrors the subset of the OpenWeather current-weather
// payload the snapshot needs. Requested with units=imperial, so temp and
// wind speed arrive in Fahrenheit and mph; pressure is always hPa.
type openWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
}

// Current resolves current conditions at the given coordinates. When no
// API key is configured or the upstream call fails, a simulated snapshot
// is returned instead of an error.
func (p *Provider) Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidCoords, "coordinates out of range", nil)
	}

	if !p.apiKey.IsSet() {
		return SimulateWeather(lat, p.clock.Now()), nil
	}

	snapshot, err := p.fetch(ctx, lat, lon)
	if err != nil {
		p.logger.Warn("weather lookup fell back to simulated data",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		return SimulateWeather(lat, p.clock.Now()), nil
	}
	return snapshot, nil
}

func (p *Provider) fetch(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("appid", p.apiKey.Unmask())
	params.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := p.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather service returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to read weather response", err)
	}

	var payload openWeatherResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to parse weather response", err)
	}

	conditions := ""
	if len(payload.Weather) > 0 {
		conditions = payload.Weather[0].Description
		if conditions == "" {
			conditions = payload.Weather[0].Main
		}
	}

	return &types.WeatherSnapshot{
		TempF:        math.Round(payload.Main.Temp),
		FeelsLikeF:   math.Round(payload.Main.FeelsLike),
		Humidity:     payload.Main.Humidity,
		PressureInHg: roundHundredths(payload.Main.Pressure * hPaToInHg),
		WindMph:      math.Round(payload.Wind.Speed),
		WindDir:      WindDirection(payload.Wind.Deg),
		Conditions:   conditions,
	}, nil
}

// WindDirection maps a bearing in degrees to its 16-point compass label.
func WindDirection(degrees float64) string {
	index := int(math.Round(degrees/22.5)) % 16
	if index < 0 {
		index += 16
	}
	return windDirections[index]
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
