package log

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedAdapter() (log.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewKratosAdapter(zap.New(core)), logs
}

func TestKratosAdapter_FieldsAndLevels(t *testing.T) {
	adapter, logs := newObservedAdapter()

	err := adapter.Log(log.LevelInfo, "provider", "coffee_prices", "failures", 3)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "coffee_prices", fields["provider"])
	assert.EqualValues(t, 3, fields["failures"])
}

func TestKratosAdapter_LevelMapping(t *testing.T) {
	adapter, logs := newObservedAdapter()

	require.NoError(t, adapter.Log(log.LevelDebug, "k", "v"))
	require.NoError(t, adapter.Log(log.LevelWarn, "k", "v"))
	require.NoError(t, adapter.Log(log.LevelError, "k", "v"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestKratosAdapter_EmptyKeyvals(t *testing.T) {
	adapter, logs := newObservedAdapter()

	require.NoError(t, adapter.Log(log.LevelInfo))
	assert.Zero(t, logs.Len())
}

func TestKratosAdapter_OddKeyvals(t *testing.T) {
	adapter, logs := newObservedAdapter()

	// A dangling key without a value is dropped, not panicked on.
	require.NoError(t, adapter.Log(log.LevelInfo, "k1", "v1", "dangling"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "v1", fields["k1"])
	assert.NotContains(t, fields, "dangling")
}
