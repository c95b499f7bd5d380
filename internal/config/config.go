// Package config defines the global configuration structure for the riverlog
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"riverlog/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the riverlog service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"riverlog-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server    ServerConfig
	Database  DatabaseConfig
	USGS      USGSConfig
	Weather   WeatherConfig
	Auth      AuthConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// USGSConfig holds the upstream gauge-data service configuration.
type USGSConfig struct {
	InstantaneousURL string        `envconfig:"USGS_IV_URL" default:"https://waterservices.usgs.gov/nwis/iv/"`
	DailyURL         string        `envconfig:"USGS_DV_URL" default:"https://waterservices.usgs.gov/nwis/dv/"`
	Timeout          time.Duration `envconfig:"USGS_TIMEOUT" default:"8s"`
	UserAgent        string        `envconfig:"USGS_USER_AGENT" default:"riverlog/1.0"`
}

// WeatherConfig holds the OpenWeather integration settings. An empty APIKey
// switches the weather provider into simulated mode.
type WeatherConfig struct {
	BaseURL string        `envconfig:"OPENWEATHER_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
	APIKey  SecretString  `envconfig:"OPENWEATHER_API_KEY"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"8s"`
}

// AuthConfig holds session and password-hashing settings.
type AuthConfig struct {
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"168h"` // 7 days
	BcryptCost      int           `envconfig:"BCRYPT_COST" default:"12" validate:"min=10,max=16"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"true"`
	CookieDomain    string        `envconfig:"COOKIE_DOMAIN"`
}

// SecurityConfig holds abuse-protection and CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxFailedAttempts  int           `envconfig:"MAX_FAILED_ATTEMPTS" default:"10"`
	AttemptWindow      time.Duration `envconfig:"ATTEMPT_WINDOW" default:"15m"`
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	Enabled            bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	RiverRefreshSpec   string        `envconfig:"RIVER_REFRESH_CRON" default:"0 * * * *"`   // hourly
	SessionSweepSpec   string        `envconfig:"SESSION_SWEEP_CRON" default:"30 3 * * *"`  // daily 03:30
	LicenseScanSpec    string        `envconfig:"LICENSE_SCAN_CRON" default:"0 8 * * *"`    // daily 08:00
	RefreshStagger     time.Duration `envconfig:"REFRESH_STAGGER" default:"100ms"`
	LicenseExpiryAhead time.Duration `envconfig:"LICENSE_EXPIRY_AHEAD" default:"720h"` // 30 days
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
