package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// BreakerRepo implements biz.BreakerRepo interface.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
//
// Per-provider record layout in Redis:
//
//	breaker:{provider}:state        last written state (closed/open)
//	breaker:{provider}:failures     monotonic failure counter (INCR)
//	breaker:{provider}:last_failure unix timestamp of the last failure
//
// No TTL on these keys: the cooldown is computed from last_failure by the
// biz layer, not from key expiry. Every write is a single atomic Redis
// primitive, so concurrent pipeline runs cannot corrupt a record.
type BreakerRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewBreakerRepo creates a new circuit breaker repository.
func NewBreakerRepo(rdb *redis.Client, logger log.Logger) *BreakerRepo {
	return &BreakerRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// GetRecord reads the raw persisted record for a provider.
// A provider with no stored keys returns a zero record (closed, 0 failures).
func (r *BreakerRepo) GetRecord(ctx context.Context, provider string) (*model.BreakerRecord, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	vals, err := r.rdb.MGet(ctx,
		breakerKey(provider, "state"),
		breakerKey(provider, "failures"),
		breakerKey(provider, "last_failure"),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read breaker record for %s: %w", provider, err)
	}

	rec := &model.BreakerRecord{State: model.CircuitClosed}

	if s, ok := vals[0].(string); ok && s != "" {
		rec.State = model.CircuitState(s)
	}
	if s, ok := vals[1].(string); ok {
		count, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse failure count for %s: %w", provider, err)
		}
		rec.FailureCount = count
	}
	if s, ok := vals[2].(string); ok {
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last failure timestamp for %s: %w", provider, err)
		}
		t := time.Unix(ts, 0)
		rec.LastFailureAt = &t
	}

	return rec, nil
}

// IncrementFailures atomically increments the failure counter and records
// the failure timestamp. Uses Redis INCR (read-modify-write on the server)
// so concurrent callers never lose a failure.
func (r *BreakerRepo) IncrementFailures(ctx context.Context, provider string, at time.Time) (int64, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	count, err := r.rdb.Incr(ctx, breakerKey(provider, "failures")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment failure count for %s: %w", provider, err)
	}

	if err := r.rdb.Set(ctx, breakerKey(provider, "last_failure"), at.Unix(), 0).Err(); err != nil {
		return count, fmt.Errorf("failed to set last failure for %s: %w", provider, err)
	}

	return count, nil
}

// SetState writes the stored state for a provider.
func (r *BreakerRepo) SetState(ctx context.Context, provider string, state model.CircuitState) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Set(ctx, breakerKey(provider, "state"), string(state), 0).Err(); err != nil {
		return fmt.Errorf("failed to set breaker state for %s: %w", provider, err)
	}

	return nil
}

// ClearFailures removes the failure counter and timestamp, keeping the
// state key untouched. Callers pair this with SetState on recovery.
func (r *BreakerRepo) ClearFailures(ctx context.Context, provider string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	keys := []string{
		breakerKey(provider, "failures"),
		breakerKey(provider, "last_failure"),
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear failures for %s: %w", provider, err)
	}

	return nil
}

// DeleteAll removes every stored key for a provider, returning it to the
// implicit closed/zero state.
func (r *BreakerRepo) DeleteAll(ctx context.Context, provider string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	keys := []string{
		breakerKey(provider, "state"),
		breakerKey(provider, "failures"),
		breakerKey(provider, "last_failure"),
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete breaker record for %s: %w", provider, err)
	}

	r.logger.Infow("circuit breaker record deleted", "provider", provider)

	return nil
}

// breakerKey generates a Redis key for circuit breaker bookkeeping.
// Format: breaker:{provider}:{field}
// Example: breaker:coffee_prices:failures
func breakerKey(provider, field string) string {
	return fmt.Sprintf("breaker:%s:%s", provider, field)
}
