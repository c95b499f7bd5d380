// Package hydro implements the river flow data pipeline: the USGS water
// services client, the date-policy flow resolver with its cache, the
// simulated fallback generator, and the threshold alert evaluator.
package hydro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"riverlog/internal/config"
	"riverlog/internal/external"
	"riverlog/internal/types"
)

// usgsMissingValue is the sentinel USGS emits for missing observations.
const usgsMissingValue = -999999

// streamflowParameter is the USGS parameter code for discharge in CFS.
const streamflowParameter = "00060"

// dailyMeanStat is the USGS statistic code for the daily mean.
const dailyMeanStat = "00003"

// Reading is a single instantaneous observation bucketed to its local hour.
type Reading struct {
	Cfs  float64
	Hour int
}

// USGSClient fetches streamflow observations from the USGS instantaneous
// values and daily values services.
type USGSClient struct {
	base             *external.BaseClient
	instantaneousURL string
	dailyURL         string
	logger           *slog.Logger
}

// NewUSGSClient creates a USGSClient from config. The underlying BaseClient
// provides circuit breaking and retries shared by all upstream calls.
func NewUSGSClient(cfg config.USGSConfig, logger *slog.Logger, opts ...external.BaseClientOption) *USGSClient {
	if logger == nil {
		logger = slog.Default()
	}
	base := external.NewBaseClient(
		&http.Client{Timeout: cfg.Timeout},
		"usgs",
		external.DefaultRetryPolicy(),
		cfg.UserAgent,
		opts...,
	)
	return &USGSClient{
		base:             base,
		instantaneousURL: cfg.InstantaneousURL,
		dailyURL:         cfg.DailyURL,
		logger:           logger,
	}
}

// usgsEnvelope mirrors the WaterML-JSON structure both USGS services share.
type usgsEnvelope struct {
	Value struct {
		TimeSeries []struct {
			Values []struct {
				Value []usgsPoint `json:"value"`
			} `json:"values"`
		} `json:"timeSeries"`
	} `json:"value"`
}

type usgsPoint struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}

// InstantaneousReadings fetches every instantaneous observation for the
// given site and calendar day (date formatted "2006-01-02"). Non-numeric
// and missing-value observations are dropped.
func (c *USGSClient) InstantaneousReadings(ctx context.Context, siteNumber, date string) ([]Reading, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("sites", siteNumber)
	params.Set("parameterCd", streamflowParameter)
	params.Set("startDT", date+"T00:00")
	params.Set("endDT", date+"T23:59")

	env, err := c.fetch(ctx, c.instantaneousURL, params)
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, 0)
	for _, pt := range flattenPoints(env) {
		cfs, err := strconv.ParseFloat(pt.Value, 64)
		if err != nil || cfs == usgsMissingValue {
			continue
		}
		hour, ok := hourOf(pt.DateTime)
		if !ok {
			continue
		}
		readings = append(readings, Reading{Cfs: cfs, Hour: hour})
	}
	return readings, nil
}

// DailyMean fetches the mean daily flow for the given site and date. The
// second return value is false when the service has no record for that day.
func (c *USGSClient) DailyMean(ctx context.Context, siteNumber, date string) (float64, bool, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("sites", siteNumber)
	params.Set("parameterCd", streamflowParameter)
	params.Set("startDT", date)
	params.Set("endDT", date)
	params.Set("statCd", dailyMeanStat)

	env, err := c.fetch(ctx, c.dailyURL, params)
	if err != nil {
		return 0, false, err
	}

	for _, pt := range flattenPoints(env) {
		cfs, err := strconv.ParseFloat(pt.Value, 64)
		if err != nil || cfs == usgsMissingValue {
			continue
		}
		return cfs, true, nil
	}
	return 0, false, nil
}

func (c *USGSClient) fetch(ctx context.Context, baseURL string, params url.Values) (*usgsEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build USGS request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamUSGS,
			fmt.Sprintf("USGS returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUSGS, "failed to read USGS response", err)
	}

	var env usgsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUSGS, "failed to parse USGS response", err)
	}
	return &env, nil
}

func flattenPoints(env *usgsEnvelope) []usgsPoint {
	points := make([]usgsPoint, 0)
	for _, ts := range env.Value.TimeSeries {
		for _, vs := range ts.Values {
			points = append(points, vs.Value...)
		}
	}
	return points
}

// hourOf extracts the local hour from a USGS timestamp such as
// "2024-07-04T14:30:00.000-05:00". The hour is read positionally since the
// service always reports site-local time in this fixed layout.
func hourOf(dateTime string) (int, bool) {
	if t, err := time.Parse("2006-01-02T15:04:05.000-07:00", dateTime); err == nil {
		return t.Hour(), true
	}
	if len(dateTime) >= 13 {
		if h, err := strconv.Atoi(dateTime[11:13]); err == nil && h >= 0 && h < 24 {
			return h, true
		}
	}
	return 0, false
}
