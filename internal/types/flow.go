package types

import (
	"strconv"
	"time"
)

// FlowCondition is a display sentinel for gauges without a usable reading.
// Stored in SavedRiver.CurrentFlow alongside numeric CFS strings; the alert
// evaluator treats both sentinels as "fire nothing".
type FlowCondition string

const (
	FlowNoData FlowCondition = "No Data"
	FlowError  FlowCondition = "Error"
)

// IsFlowSentinel reports whether a CurrentFlow string is one of the
// non-numeric sentinels rather than a CFS value.
func IsFlowSentinel(s string) bool {
	return s == string(FlowNoData) || s == string(FlowError)
}

// FlowTrend classifies the direction of change between two flow readings.
type FlowTrend string

const (
	TrendRising  FlowTrend = "rising"
	TrendFalling FlowTrend = "falling"
	TrendStable  FlowTrend = "stable"
)

// FlowSource identifies where a resolved flow value came from.
type FlowSource string

const (
	SourceInstantaneous FlowSource = "instantaneous"
	SourceDailyMean     FlowSource = "daily_mean"
	SourceSimulated     FlowSource = "simulated"
)

// FlowValue is a single resolved flow reading for a gauge site.
// Simulated values carry Source == SourceSimulated so callers can render
// the "(simulated)" annotation.
type FlowValue struct {
	Cfs        float64    `json:"cfs"`
	SiteNumber string     `json:"site_number"`
	Date       time.Time  `json:"date"`
	Source     FlowSource `json:"source"`
}

// Simulated reports whether the value was produced by the fallback simulator.
func (v FlowValue) Simulated() bool {
	return v.Source == SourceSimulated
}

// Display renders the value for dashboard storage: the whole-number CFS
// string (matching gauge display precision).
func (v FlowValue) Display() string {
	return strconv.FormatFloat(v.Cfs, 'f', 0, 64)
}

// HourlyPoint is a single slot in a 24-hour flow series. Value is nil for
// hours with no readings.
type HourlyPoint struct {
	Hour string   `json:"hour"` // "00:00" .. "23:00"
	Cfs  *float64 `json:"cfs"`
}

// FlowSeries is a full day of hourly flow data for a gauge site.
// Serialized verbatim into the cached_flow_data JSONB column.
type FlowSeries struct {
	SiteNumber string        `json:"site_number"`
	Date       string        `json:"date"` // "2006-01-02"
	Points     []HourlyPoint `json:"points"`
	Source     FlowSource    `json:"source"`
	CachedAt   time.Time     `json:"cached_at"`
}

// Valid reports whether the series is structurally usable as a cache hit:
// exactly 24 ascending hourly slots for the expected site and date.
// A malformed series is treated as a cache miss by callers.
func (s *FlowSeries) Valid(siteNumber, date string) bool {
	if s == nil || s.SiteNumber != siteNumber || s.Date != date {
		return false
	}
	if len(s.Points) != 24 {
		return false
	}
	for i, p := range s.Points {
		if p.Hour != hourLabel(i) {
			return false
		}
	}
	return true
}

// hourLabel formats slot index i as "HH:00".
func hourLabel(i int) string {
	if i < 10 {
		return "0" + strconv.Itoa(i) + ":00"
	}
	return strconv.Itoa(i) + ":00"
}

// HourLabels returns the canonical 24 ascending slot labels.
func HourLabels() []string {
	labels := make([]string, 24)
	for i := range labels {
		labels[i] = hourLabel(i)
	}
	return labels
}

// ComputeTrend classifies the change from previous to current flow.
// Changes of 5% or less (relative to the previous value) are stable.
// A zero or negative previous value yields stable, since no meaningful
// ratio exists.
func ComputeTrend(previous, current float64) FlowTrend {
	if previous <= 0 {
		return TrendStable
	}
	change := (current - previous) / previous
	switch {
	case change > 0.05:
		return TrendRising
	case change < -0.05:
		return TrendFalling
	default:
		return TrendStable
	}
}
