package hydro

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"riverlog/internal/types"
)

const (
	// instantaneousWindow is the age limit for using the instantaneous
	// service when resolving a single flow value.
	instantaneousWindow = 3

	// hourlyWindow is the age limit for building an hourly series from
	// instantaneous observations. Older dates fall back to the daily mean
	// broadcast flat across the day.
	hourlyWindow = 120

	// sameDayCacheTTL bounds how long a cached series for the current day
	// is served before re-resolving. Past days never go stale.
	sameDayCacheTTL = time.Hour
)

const dateLayout = "2006-01-02"

func hourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// usgsAPI is the slice of USGSClient the resolver needs.
type usgsAPI interface {
	InstantaneousReadings(ctx context.Context, siteNumber, date string) ([]Reading, error)
	DailyMean(ctx context.Context, siteNumber, date string) (float64, bool, error)
}

// FlowCache is the persistence hook for resolved hourly series.
type FlowCache interface {
	Get(ctx context.Context, siteNumber, date string) (*types.FlowSeries, error)
	Put(ctx context.Context, series *types.FlowSeries) error
}

// Resolver turns (site, date) pairs into flow values and hourly series,
// picking the upstream query resolution by date age and falling back to
// simulated data when the upstream service is unreachable. Simulated
// results are always marked as such; callers surface that to the user.
type Resolver struct {
	usgs   usgsAPI
	cache  FlowCache
	clock  types.Clock
	logger *slog.Logger
}

// NewResolver creates a Resolver. cache may be nil, which disables series
// caching (every call hits upstream).
func NewResolver(usgs usgsAPI, cache FlowCache, clock types.Clock, logger *slog.Logger) *Resolver {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		usgs:   usgs,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

// ResolveFlow resolves a single flow value for a site and calendar date.
//
// Dates within 3 days of now query the instantaneous service and average
// all valid readings; older dates query the daily mean. A day with no
// valid readings resolves to nil (no data), which is not an error. Any
// upstream failure resolves to a simulated value marked with
// SourceSimulated rather than surfacing the error.
func (r *Resolver) ResolveFlow(ctx context.Context, siteNumber string, date time.Time) (*types.FlowValue, error) {
	dateStr := date.Format(dateLayout)

	if r.daysAgo(date) <= instantaneousWindow {
		readings, err := r.usgs.InstantaneousReadings(ctx, siteNumber, dateStr)
		if err != nil {
			return r.simulatedValue(siteNumber, date, err), nil
		}
		if len(readings) == 0 {
			return nil, nil
		}
		var sum float64
		for _, rd := range readings {
			sum += rd.Cfs
		}
		return &types.FlowValue{
			Cfs:        sum / float64(len(readings)),
			SiteNumber: siteNumber,
			Date:       date,
			Source:     types.SourceInstantaneous,
		}, nil
	}

	mean, ok, err := r.usgs.DailyMean(ctx, siteNumber, dateStr)
	if err != nil {
		return r.simulatedValue(siteNumber, date, err), nil
	}
	if !ok {
		return nil, nil
	}
	return &types.FlowValue{
		Cfs:        mean,
		SiteNumber: siteNumber,
		Date:       date,
		Source:     types.SourceDailyMean,
	}, nil
}

// ResolveHourlySeries resolves a 24-slot hourly series for a site and date.
//
// A valid cache hit is served directly. Dates within 120 days bucket
// instantaneous observations by hour, averaging duplicates; hours without
// observations stay nil. Older dates broadcast the daily mean across all
// 24 slots. Upstream failure produces a synthetic simulated curve so the
// graph always has something to render. The result always has exactly 24
// points labeled "00:00" through "23:00" ascending.
func (r *Resolver) ResolveHourlySeries(ctx context.Context, siteNumber string, date time.Time) (*types.FlowSeries, error) {
	dateStr := date.Format(dateLayout)

	if cached := r.cacheGet(ctx, siteNumber, dateStr); cached != nil {
		return cached, nil
	}

	var series *types.FlowSeries
	if r.daysAgo(date) <= hourlyWindow {
		readings, err := r.usgs.InstantaneousReadings(ctx, siteNumber, dateStr)
		if err != nil {
			return r.simulatedSeries(siteNumber, date, err), nil
		}
		series = bucketByHour(siteNumber, dateStr, readings, r.clock.Now())
	} else {
		mean, ok, err := r.usgs.DailyMean(ctx, siteNumber, dateStr)
		if err != nil {
			return r.simulatedSeries(siteNumber, date, err), nil
		}
		series = broadcastDaily(siteNumber, dateStr, mean, ok, r.clock.Now())
	}

	r.cachePut(ctx, series)
	return series, nil
}

func (r *Resolver) daysAgo(date time.Time) int {
	now := r.clock.Now()
	return int(now.Sub(date).Hours() / 24)
}

func (r *Resolver) simulatedValue(siteNumber string, date time.Time, cause error) *types.FlowValue {
	r.logger.Warn("flow resolution fell back to simulated data",
		"site_number", siteNumber,
		"date", date.Format(dateLayout),
		"error", cause,
	)
	return &types.FlowValue{
		Cfs:        SimulateFlow(siteNumber, date),
		SiteNumber: siteNumber,
		Date:       date,
		Source:     types.SourceSimulated,
	}
}

func (r *Resolver) simulatedSeries(siteNumber string, date time.Time, cause error) *types.FlowSeries {
	r.logger.Warn("hourly series fell back to simulated data",
		"site_number", siteNumber,
		"date", date.Format(dateLayout),
		"error", cause,
	)
	base := SimulateFlow(siteNumber, date)
	curve := simulateHourlyCurve(base)

	points := make([]types.HourlyPoint, 24)
	for hour := 0; hour < 24; hour++ {
		cfs := curve[hour]
		points[hour] = types.HourlyPoint{Hour: hourLabel(hour), Cfs: &cfs}
	}
	return &types.FlowSeries{
		SiteNumber: siteNumber,
		Date:       date.Format(dateLayout),
		Points:     points,
		Source:     types.SourceSimulated,
		CachedAt:   r.clock.Now(),
	}
}

// cacheGet returns a cached series if present, well-formed, and fresh.
// A malformed cached row is treated as a miss.
func (r *Resolver) cacheGet(ctx context.Context, siteNumber, dateStr string) *types.FlowSeries {
	if r.cache == nil {
		return nil
	}
	series, err := r.cache.Get(ctx, siteNumber, dateStr)
	if err != nil || series == nil {
		return nil
	}
	if !series.Valid(siteNumber, dateStr) {
		r.logger.Warn("discarding malformed cached flow series",
			"site_number", siteNumber,
			"date", dateStr,
		)
		return nil
	}

	now := r.clock.Now()
	if dateStr == now.Format(dateLayout) && now.Sub(series.CachedAt) > sameDayCacheTTL {
		return nil
	}
	return series
}

// cachePut stores a resolved series, best effort. Simulated series are not
// cached so a transient outage cannot poison historical data.
func (r *Resolver) cachePut(ctx context.Context, series *types.FlowSeries) {
	if r.cache == nil || series.Source == types.SourceSimulated {
		return
	}
	if err := r.cache.Put(ctx, series); err != nil {
		r.logger.Warn("failed to cache flow series",
			"site_number", series.SiteNumber,
			"date", series.Date,
			"error", err,
		)
	}
}

func bucketByHour(siteNumber, dateStr string, readings []Reading, now time.Time) *types.FlowSeries {
	var sums, counts [24]float64
	for _, rd := range readings {
		if rd.Hour < 0 || rd.Hour > 23 {
			continue
		}
		sums[rd.Hour] += rd.Cfs
		counts[rd.Hour]++
	}

	points := make([]types.HourlyPoint, 24)
	for hour := 0; hour < 24; hour++ {
		points[hour] = types.HourlyPoint{Hour: hourLabel(hour)}
		if counts[hour] > 0 {
			avg := sums[hour] / counts[hour]
			points[hour].Cfs = &avg
		}
	}
	return &types.FlowSeries{
		SiteNumber: siteNumber,
		Date:       dateStr,
		Points:     points,
		Source:     types.SourceInstantaneous,
		CachedAt:   now,
	}
}

func broadcastDaily(siteNumber, dateStr string, mean float64, ok bool, now time.Time) *types.FlowSeries {
	points := make([]types.HourlyPoint, 24)
	for hour := 0; hour < 24; hour++ {
		points[hour] = types.HourlyPoint{Hour: hourLabel(hour)}
		if ok {
			v := mean
			points[hour].Cfs = &v
		}
	}
	return &types.FlowSeries{
		SiteNumber: siteNumber,
		Date:       dateStr,
		Points:     points,
		Source:     types.SourceDailyMean,
		CachedAt:   now,
	}
}
