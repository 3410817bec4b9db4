// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment
// variables, with CLI flag overrides.
package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the root configuration structure.
type Bootstrap struct {
	Server   *Server
	Data     *Data
	Pipeline *Pipeline
	Log      *Log
}

// Server holds transport configuration.
type Server struct {
	Http *ServerHTTP
}

// ServerHTTP configures the HTTP listener.
type ServerHTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage configuration.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database configures the MySQL connection.
type Database struct {
	Driver string
	Source string
}

// Redis configures the shared key-value store used for circuit breaker
// bookkeeping and the latest-quote read cache.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Pipeline configures the acquisition pipeline: breaker thresholds,
// provider clients, freshness thresholds and the auto-refresh schedule.
type Pipeline struct {
	Breaker   *Breaker
	Providers *Providers
	Freshness *Freshness
	// CronSpec is the robfig/cron schedule (with seconds) for the
	// freshness-driven auto-refresh job. Empty disables the job.
	CronSpec string
}

// Breaker configures per-provider circuit breakers.
type Breaker struct {
	FailureThreshold int64
	Cooldown         *durationpb.Duration
}

// Providers configures the external data sources.
type Providers struct {
	// Timeout bounds every provider HTTP call.
	Timeout *durationpb.Duration
	// ProxyURL is an optional SOCKS5 egress proxy (socks5://host:port).
	ProxyURL string
	// FxSymbol is the target currency for USD reference rates.
	FxSymbol string
	// WeatherLatitude/WeatherLongitude locate the tracked growing region.
	WeatherLatitude  float64
	WeatherLongitude float64
	// CoffeeStaticUSD is an optional last-resort coffee price (USD/lb)
	// returned when every coffee source fails. Zero disables it.
	CoffeeStaticUSD float64
	// FxStaticRate is an optional last-resort USD reference rate.
	FxStaticRate float64
	// NewsFeedURL overrides the default regional news feed endpoint.
	NewsFeedURL string
}

// Freshness configures per-category staleness thresholds.
type Freshness struct {
	CoffeeMaxAge  *durationpb.Duration
	FxMaxAge      *durationpb.Duration
	WeatherMaxAge *durationpb.Duration
	NewsMaxAge    *durationpb.Duration
	// StaleCooperativeDays is the default window for stale-entity queries.
	StaleCooperativeDays int
}

// Log configures the Zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
