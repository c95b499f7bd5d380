package types

import (
	"time"
)

// User represents a registered angler account.
type User struct {
	ID           string `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`

	// Profile fields, all optional.
	FullName string `json:"full_name,omitempty" db:"full_name"`
	Location string `json:"location,omitempty" db:"location"`
	Phone    string `json:"phone,omitempty" db:"phone"`
	Bio      string `json:"bio,omitempty" db:"bio"`
	PhotoURL string `json:"photo_url,omitempty" db:"photo_url"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Session represents an authenticated user session.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	CSRFToken      string    `json:"-" db:"csrf_token"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// SecurityEvent represents a unified security event for abuse tracking.
// Covers both login attempts and other credential-sensitive operations.
type SecurityEvent struct {
	ID            int64     `db:"id"`
	EventType     string    `db:"event_type"`
	Identifier    string    `db:"identifier"`
	IPAddress     string    `db:"ip_address"`
	AttemptedAt   time.Time `db:"attempted_at"`
	Success       bool      `db:"success"`
	FailureReason string    `db:"failure_reason"`
}

// JournalEntry is the core domain entity: a single logged fishing outing.
type JournalEntry struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// When and where
	Date      time.Time `json:"date" db:"entry_date"`
	City      string    `json:"city,omitempty" db:"city"`
	State     string    `json:"state,omitempty" db:"state"`
	Latitude  *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64  `json:"longitude,omitempty" db:"longitude"`
	Address   string    `json:"address,omitempty" db:"address"`
	StartTime string    `json:"start_time,omitempty" db:"start_time"`
	EndTime   string    `json:"end_time,omitempty" db:"end_time"`

	// Water and catch details
	RiverName     string   `json:"river_name,omitempty" db:"river_name"`
	SiteNumber    string   `json:"site_number,omitempty" db:"site_number"`
	WaterTempF    *float64 `json:"water_temp_f,omitempty" db:"water_temp_f"`
	WaterFlowCfs  *float64 `json:"water_flow_cfs,omitempty" db:"water_flow_cfs"`
	TargetSpecies string   `json:"target_species,omitempty" db:"target_species"`
	Angler        string   `json:"angler,omitempty" db:"angler"`
	FliesUsed     string   `json:"flies_used,omitempty" db:"flies_used"`
	Notes         string   `json:"notes,omitempty" db:"notes"`

	// Captured environment snapshots (JSONB columns)
	Weather        *WeatherSnapshot `json:"weather,omitempty" db:"weather_data"`
	MoonPhase      *MoonPhase       `json:"moon_phase,omitempty" db:"moon_phase"`
	CachedFlowData *FlowSeries      `json:"cached_flow_data,omitempty" db:"cached_flow_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SavedRiver is a gauge a user tracks on their dashboard.
type SavedRiver struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	RiverName  string `json:"river_name" db:"river_name"`
	SiteNumber string `json:"site_number" db:"site_number"`

	// Latest resolved flow state. CurrentFlow holds either a numeric CFS
	// string or one of the FlowCondition sentinels ("No Data", "Error").
	CurrentFlow string     `json:"current_flow,omitempty" db:"current_flow"`
	Trend       FlowTrend  `json:"trend,omitempty" db:"trend"`
	Simulated   bool       `json:"simulated" db:"simulated"`
	LastChecked *time.Time `json:"last_checked,omitempty" db:"last_checked"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FishingLicense tracks a purchased license and its expiration.
type FishingLicense struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	LicenseType    string    `json:"license_type" db:"license_type"`
	State          string    `json:"state" db:"state"`
	LicenseNumber  string    `json:"license_number,omitempty" db:"license_number"`
	IssueDate      time.Time `json:"issue_date" db:"issue_date"`
	ExpirationDate time.Time `json:"expiration_date" db:"expiration_date"`
	CostCents      int64     `json:"cost_cents" db:"cost_cents"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// AlertKind identifies which flow alert threshold a config row describes.
type AlertKind string

const (
	AlertKindHigh  AlertKind = "high"
	AlertKindLow   AlertKind = "low"
	AlertKindFlood AlertKind = "flood"
)

// Valid reports whether k is a recognized alert kind.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindHigh, AlertKindLow, AlertKindFlood:
		return true
	}
	return false
}

// FlowAlertConfig is a per-user, per-site, per-kind alert threshold.
// High and flood alerts fire when the flow is at or above ThresholdCfs;
// low alerts fire when the flow is at or below it.
type FlowAlertConfig struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	SiteNumber      string     `json:"site_number" db:"site_number"`
	Kind            AlertKind  `json:"kind" db:"kind"`
	ThresholdCfs    float64    `json:"threshold_cfs" db:"threshold_cfs"`
	Enabled         bool       `json:"enabled" db:"enabled"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TriggeredAlert describes a single alert firing during evaluation.
type TriggeredAlert struct {
	SiteNumber   string    `json:"site_number"`
	Kind         AlertKind `json:"kind"`
	ThresholdCfs float64   `json:"threshold_cfs"`
	FlowCfs      float64   `json:"flow_cfs"`
	TriggeredAt  time.Time `json:"triggered_at"`
}

// GaugeSite is one entry in the curated site directory.
type GaugeSite struct {
	SiteNumber string `json:"site_number"`
	Name       string `json:"name"`
	State      string `json:"state"`
}

// WeatherSnapshot captures current conditions at entry-save time.
// Stored verbatim in the weather_data JSONB column.
type WeatherSnapshot struct {
	TempF        float64 `json:"temp_f"`
	FeelsLikeF   float64 `json:"feels_like_f"`
	Humidity     int     `json:"humidity"`
	PressureInHg float64 `json:"pressure_inhg"`
	WindMph      float64 `json:"wind_mph"`
	WindDir      string  `json:"wind_dir"`
	Conditions   string  `json:"conditions"`
	Simulated    bool    `json:"simulated,omitempty"`
}

// RiverDashboardStats aggregates saved-river state for dashboard summary cards.
type RiverDashboardStats struct {
	TotalRivers    int     `json:"total_rivers"`
	AverageFlowCfs float64 `json:"average_flow_cfs"`
	ActiveAlerts   int     `json:"active_alerts"`
}
