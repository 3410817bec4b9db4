// Package data provides data access layer implementations.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyLatest is the prefix for latest-quote caches: latest:{category}
	CacheKeyLatest = "latest"

	// TTLLatest is the TTL for latest-quote cache entries. A pure read
	// cache, separate from breaker bookkeeping which carries no TTL.
	TTLLatest = 5 * time.Minute

	// lruSize bounds the in-process cache; one entry per category plus room.
	lruSize = 32
)

// ErrCacheNotFound is returned when a cache key does not exist.
var ErrCacheNotFound = errors.New("cache: key not found")

// QuoteCache is a two-level read cache for latest quotes: a process-local
// expirable LRU in front of a short-TTL Redis key. Either level may be
// unavailable without affecting correctness; MySQL stays the source of
// truth.
type QuoteCache struct {
	lru    *expirable.LRU[string, *model.Quote]
	rdb    *redis.Client
	logger *log.Helper
}

// NewQuoteCache creates a new layered quote cache.
// If the Redis client is nil, only the in-process level is used.
func NewQuoteCache(rdb *redis.Client, logger log.Logger) *QuoteCache {
	return &QuoteCache{
		lru:    expirable.NewLRU[string, *model.Quote](lruSize, nil, TTLLatest),
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// PutLatest publishes the latest quote for a category to both cache levels.
func (c *QuoteCache) PutLatest(ctx context.Context, q *model.Quote) error {
	if q == nil {
		return fmt.Errorf("cache: quote is nil")
	}

	c.lru.Add(q.Category, q)

	if c.rdb == nil {
		return nil
	}

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal quote for %s: %w", q.Category, err)
	}

	key := BuildCacheKey(CacheKeyLatest, q.Category)
	if err := c.rdb.Set(ctx, key, data, TTLLatest).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}

	return nil
}

// GetLatest returns the cached latest quote for a category, checking the
// LRU first and Redis second. A Redis hit refills the LRU.
func (c *QuoteCache) GetLatest(ctx context.Context, category string) (*model.Quote, bool) {
	if q, ok := c.lru.Get(category); ok {
		return q, true
	}

	if c.rdb == nil {
		return nil, false
	}

	key := BuildCacheKey(CacheKeyLatest, category)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debugw("quote cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var q model.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		c.logger.Warnw("quote cache holds malformed value, ignoring", "key", key, "error", err)
		return nil, false
	}

	c.lru.Add(category, &q)
	return &q, true
}

// Invalidate drops a category from both cache levels.
func (c *QuoteCache) Invalidate(ctx context.Context, category string) error {
	c.lru.Remove(category)

	if c.rdb == nil {
		return nil
	}

	key := BuildCacheKey(CacheKeyLatest, category)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}

	return nil
}

// BuildCacheKey constructs a cache key with the appropriate prefix.
// Example: BuildCacheKey(CacheKeyLatest, "coffee_price") -> "latest:coffee_price"
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
