package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies
// defaults, and allows overrides from environment variables prefixed
// with CROPSIGNAL_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or CROPSIGNAL_DATA_DATABASE_SOURCE: MySQL connection string
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable support with CROPSIGNAL_ prefix
	v.SetEnvPrefix("CROPSIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names for required fields
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "CROPSIGNAL_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "CROPSIGNAL_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.redis.password", "REDIS_PASSWORD", "CROPSIGNAL_DATA_REDIS_PASSWORD")
	_ = v.BindEnv("pipeline.providers.proxy_url", "CROPSIGNAL_PIPELINE_PROVIDERS_PROXY_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &ServerHTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Pipeline: &Pipeline{
			Breaker: &Breaker{
				FailureThreshold: v.GetInt64("pipeline.breaker.failure_threshold"),
				Cooldown:         durationpb.New(v.GetDuration("pipeline.breaker.cooldown")),
			},
			Providers: &Providers{
				Timeout:          durationpb.New(v.GetDuration("pipeline.providers.timeout")),
				ProxyURL:         v.GetString("pipeline.providers.proxy_url"),
				FxSymbol:         v.GetString("pipeline.providers.fx_symbol"),
				WeatherLatitude:  v.GetFloat64("pipeline.providers.weather_latitude"),
				WeatherLongitude: v.GetFloat64("pipeline.providers.weather_longitude"),
				CoffeeStaticUSD:  v.GetFloat64("pipeline.providers.coffee_static_usd"),
				FxStaticRate:     v.GetFloat64("pipeline.providers.fx_static_rate"),
				NewsFeedURL:      v.GetString("pipeline.providers.news_feed_url"),
			},
			Freshness: &Freshness{
				CoffeeMaxAge:         durationpb.New(v.GetDuration("pipeline.freshness.coffee_max_age")),
				FxMaxAge:             durationpb.New(v.GetDuration("pipeline.freshness.fx_max_age")),
				WeatherMaxAge:        durationpb.New(v.GetDuration("pipeline.freshness.weather_max_age")),
				NewsMaxAge:           durationpb.New(v.GetDuration("pipeline.freshness.news_max_age")),
				StaleCooperativeDays: v.GetInt("pipeline.freshness.stale_cooperative_days"),
			},
			CronSpec: v.GetString("pipeline.cron_spec"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 5*time.Minute)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Breaker defaults per operational runbook
	v.SetDefault("pipeline.breaker.failure_threshold", 3)
	v.SetDefault("pipeline.breaker.cooldown", 300*time.Second)

	// Provider defaults: Huila growing region, COP reference rate
	v.SetDefault("pipeline.providers.timeout", 15*time.Second)
	v.SetDefault("pipeline.providers.fx_symbol", "COP")
	v.SetDefault("pipeline.providers.weather_latitude", 2.53)
	v.SetDefault("pipeline.providers.weather_longitude", -75.52)

	// Freshness defaults
	v.SetDefault("pipeline.freshness.coffee_max_age", 24*time.Hour)
	v.SetDefault("pipeline.freshness.fx_max_age", 24*time.Hour)
	v.SetDefault("pipeline.freshness.weather_max_age", 12*time.Hour)
	v.SetDefault("pipeline.freshness.news_max_age", 48*time.Hour)
	v.SetDefault("pipeline.freshness.stale_cooperative_days", 90)

	// Auto-refresh: hourly on the hour (seconds-resolution cron spec)
	v.SetDefault("pipeline.cron_spec", "0 0 * * * *")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and
// valid. It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Pipeline != nil && bc.Pipeline.Breaker != nil && bc.Pipeline.Breaker.FailureThreshold <= 0 {
		missingFields = append(missingFields, "pipeline.breaker.failure_threshold (must be > 0)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
