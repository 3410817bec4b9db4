package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
data:
  database:
    source: user:pass@tcp(localhost:3306)/cropsignal?parseTime=true
`

func TestNewBootstrap_DefaultsApplied(t *testing.T) {
	bc, err := NewBootstrap(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", bc.Server.Http.Addr)
	assert.Equal(t, "mysql", bc.Data.Database.Driver)
	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)

	assert.Equal(t, int64(3), bc.Pipeline.Breaker.FailureThreshold)
	assert.Equal(t, 300*time.Second, bc.Pipeline.Breaker.Cooldown.AsDuration())

	assert.Equal(t, 15*time.Second, bc.Pipeline.Providers.Timeout.AsDuration())
	assert.Equal(t, "COP", bc.Pipeline.Providers.FxSymbol)
	assert.InDelta(t, 2.53, bc.Pipeline.Providers.WeatherLatitude, 0.001)

	assert.Equal(t, 24*time.Hour, bc.Pipeline.Freshness.CoffeeMaxAge.AsDuration())
	assert.Equal(t, 12*time.Hour, bc.Pipeline.Freshness.WeatherMaxAge.AsDuration())
	assert.Equal(t, 48*time.Hour, bc.Pipeline.Freshness.NewsMaxAge.AsDuration())
	assert.Equal(t, 90, bc.Pipeline.Freshness.StaleCooperativeDays)

	assert.Equal(t, "0 0 * * * *", bc.Pipeline.CronSpec)
	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)
}

func TestNewBootstrap_FileOverridesDefaults(t *testing.T) {
	cfg := minimalConfig + `
pipeline:
  breaker:
    failure_threshold: 5
    cooldown: 120s
  cron_spec: ""
log:
  level: debug
`
	bc, err := NewBootstrap(writeConfig(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, int64(5), bc.Pipeline.Breaker.FailureThreshold)
	assert.Equal(t, 120*time.Second, bc.Pipeline.Breaker.Cooldown.AsDuration())
	assert.Equal(t, "", bc.Pipeline.CronSpec)
	assert.Equal(t, "debug", bc.Log.Level)
}

func TestNewBootstrap_EnvOverride(t *testing.T) {
	t.Setenv("MYSQL_DSN", "env:pass@tcp(db:3306)/cropsignal")
	t.Setenv("CROPSIGNAL_DATA_REDIS_ADDR", "redis:6379")

	path := writeConfig(t, "log:\n  level: info\n")
	bc, err := NewBootstrap(path)
	require.NoError(t, err)

	assert.Equal(t, "env:pass@tcp(db:3306)/cropsignal", bc.Data.Database.Source)
	assert.Equal(t, "redis:6379", bc.Data.Redis.Addr)
}

func TestNewBootstrap_MissingDatabaseSource(t *testing.T) {
	_, err := NewBootstrap(writeConfig(t, "log:\n  level: info\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.database.source")
}

func TestNewBootstrap_InvalidThreshold(t *testing.T) {
	cfg := minimalConfig + `
pipeline:
  breaker:
    failure_threshold: -1
`
	_, err := NewBootstrap(writeConfig(t, cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_threshold")
}

func TestNewBootstrap_MissingFile(t *testing.T) {
	_, err := NewBootstrap(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
