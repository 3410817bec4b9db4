// Package data provides data access layer implementations.
// It handles database connections and data persistence.
package data

import (
	"CropSignal/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
	NewQuoteCache,
	NewBreakerRepo,
	NewQuoteRepo,
	NewNewsRepo,
	NewCooperativeRepo,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient holds breaker records and the latest-quote cache
	redisClient *redis.Client
	// cache is the layered latest-quote cache for repository use
	cache *QuoteCache
	// Note: MySQL DB is not stored here, it's injected directly to repositories
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis connection failure does not prevent application startup; breaker
// operations surface store errors at call time instead.
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, cache *QuoteCache) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, breaker state and quote cache will be unavailable")
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis cleanup is handled by NewRedisClient's cleanup function
		// which is called automatically by Wire
	}

	return d, cleanup, nil
}

// GetCache returns the quote cache for repository use.
func (d *Data) GetCache() *QuoteCache {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
