package data

import (
	"context"
	"strconv"
	"testing"
	"time"

	"CropSignal/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreakerRepo(t *testing.T) (*BreakerRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewBreakerRepo(rdb, log.DefaultLogger), mr
}

func TestBreakerRepo_GetRecord_Empty(t *testing.T) {
	repo, _ := newTestBreakerRepo(t)

	rec, err := repo.GetRecord(context.Background(), "coffee_prices")
	require.NoError(t, err)

	assert.Equal(t, model.CircuitClosed, rec.State)
	assert.Equal(t, int64(0), rec.FailureCount)
	assert.Nil(t, rec.LastFailureAt)
}

func TestBreakerRepo_IncrementFailures(t *testing.T) {
	repo, mr := newTestBreakerRepo(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	count, err := repo.IncrementFailures(ctx, "coffee_prices", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.IncrementFailures(ctx, "coffee_prices", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Keys are laid out per provider field.
	got, err := mr.Get("breaker:coffee_prices:failures")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	got, err = mr.Get("breaker:coffee_prices:last_failure")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(at.Add(time.Minute).Unix(), 10), got)

	rec, err := repo.GetRecord(ctx, "coffee_prices")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.FailureCount)
	require.NotNil(t, rec.LastFailureAt)
	assert.Equal(t, at.Add(time.Minute).Unix(), rec.LastFailureAt.Unix())
}

func TestBreakerRepo_SetStateAndReadBack(t *testing.T) {
	repo, _ := newTestBreakerRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "fx_rates", model.CircuitOpen))

	rec, err := repo.GetRecord(ctx, "fx_rates")
	require.NoError(t, err)
	assert.Equal(t, model.CircuitOpen, rec.State)

	// Providers are isolated from each other.
	other, err := repo.GetRecord(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, model.CircuitClosed, other.State)
}

func TestBreakerRepo_ClearFailuresKeepsState(t *testing.T) {
	repo, _ := newTestBreakerRepo(t)
	ctx := context.Background()

	_, err := repo.IncrementFailures(ctx, "weather", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, "weather", model.CircuitOpen))

	require.NoError(t, repo.ClearFailures(ctx, "weather"))

	rec, err := repo.GetRecord(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, model.CircuitOpen, rec.State)
	assert.Equal(t, int64(0), rec.FailureCount)
	assert.Nil(t, rec.LastFailureAt)
}

func TestBreakerRepo_DeleteAll(t *testing.T) {
	repo, mr := newTestBreakerRepo(t)
	ctx := context.Background()

	_, err := repo.IncrementFailures(ctx, "news", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, "news", model.CircuitOpen))

	require.NoError(t, repo.DeleteAll(ctx, "news"))

	assert.False(t, mr.Exists("breaker:news:state"))
	assert.False(t, mr.Exists("breaker:news:failures"))
	assert.False(t, mr.Exists("breaker:news:last_failure"))

	rec, err := repo.GetRecord(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, model.CircuitClosed, rec.State)
}

func TestBreakerRepo_NoTTLOnKeys(t *testing.T) {
	repo, mr := newTestBreakerRepo(t)
	ctx := context.Background()

	_, err := repo.IncrementFailures(ctx, "coffee_prices", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, "coffee_prices", model.CircuitOpen))

	// The cooldown is derived from last_failure, never from key expiry.
	assert.Equal(t, time.Duration(0), mr.TTL("breaker:coffee_prices:state"))
	assert.Equal(t, time.Duration(0), mr.TTL("breaker:coffee_prices:failures"))
	assert.Equal(t, time.Duration(0), mr.TTL("breaker:coffee_prices:last_failure"))
}

func TestBreakerRepo_StoreUnreachable(t *testing.T) {
	repo, mr := newTestBreakerRepo(t)
	ctx := context.Background()

	mr.Close()

	_, err := repo.GetRecord(ctx, "coffee_prices")
	assert.Error(t, err)

	_, err = repo.IncrementFailures(ctx, "coffee_prices", time.Now())
	assert.Error(t, err)
}

func TestBreakerRepo_NilClient(t *testing.T) {
	repo := NewBreakerRepo(nil, log.DefaultLogger)
	ctx := context.Background()

	_, err := repo.GetRecord(ctx, "coffee_prices")
	assert.Error(t, err)

	err = repo.SetState(ctx, "coffee_prices", model.CircuitOpen)
	assert.Error(t, err)
}
