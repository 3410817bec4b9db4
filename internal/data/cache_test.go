package data

import (
	"context"
	"testing"
	"time"

	"CropSignal/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuoteCache(t *testing.T) (*QuoteCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewQuoteCache(rdb, log.DefaultLogger), mr
}

func testQuote() *model.Quote {
	return &model.Quote{
		Category:   model.CategoryCoffeePrice,
		Value:      1.92,
		Unit:       "USD/lb",
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SourceName: "stooq",
	}
}

func TestQuoteCache_PutAndGet(t *testing.T) {
	cache, mr := newTestQuoteCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutLatest(ctx, testQuote()))

	q, ok := cache.GetLatest(ctx, model.CategoryCoffeePrice)
	require.True(t, ok)
	assert.Equal(t, 1.92, q.Value)

	// The Redis level carries the short TTL.
	assert.True(t, mr.Exists("latest:coffee_price"))
	ttl := mr.TTL("latest:coffee_price")
	assert.True(t, ttl > 0 && ttl <= TTLLatest)
}

func TestQuoteCache_Miss(t *testing.T) {
	cache, _ := newTestQuoteCache(t)

	_, ok := cache.GetLatest(context.Background(), model.CategoryWeather)
	assert.False(t, ok)
}

func TestQuoteCache_RedisHitRefillsLRU(t *testing.T) {
	cache, _ := newTestQuoteCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutLatest(ctx, testQuote()))

	// Drop the in-process level only; the Redis level must still serve
	// the read and refill the LRU.
	cache.lru.Remove(model.CategoryCoffeePrice)

	q, ok := cache.GetLatest(ctx, model.CategoryCoffeePrice)
	require.True(t, ok)
	assert.Equal(t, "stooq", q.SourceName)

	_, ok = cache.lru.Get(model.CategoryCoffeePrice)
	assert.True(t, ok)
}

func TestQuoteCache_Invalidate(t *testing.T) {
	cache, mr := newTestQuoteCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutLatest(ctx, testQuote()))
	require.NoError(t, cache.Invalidate(ctx, model.CategoryCoffeePrice))

	_, ok := cache.GetLatest(ctx, model.CategoryCoffeePrice)
	assert.False(t, ok)
	assert.False(t, mr.Exists("latest:coffee_price"))
}

func TestQuoteCache_MalformedRedisValueIgnored(t *testing.T) {
	cache, mr := newTestQuoteCache(t)

	require.NoError(t, mr.Set("latest:coffee_price", "{not json"))

	_, ok := cache.GetLatest(context.Background(), model.CategoryCoffeePrice)
	assert.False(t, ok)
}

func TestQuoteCache_NilRedisUsesLRUOnly(t *testing.T) {
	cache := NewQuoteCache(nil, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, cache.PutLatest(ctx, testQuote()))

	q, ok := cache.GetLatest(ctx, model.CategoryCoffeePrice)
	require.True(t, ok)
	assert.Equal(t, 1.92, q.Value)
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "latest:coffee_price", BuildCacheKey(CacheKeyLatest, "coffee_price"))
	assert.Equal(t, "latest:fx_rate:COP", BuildCacheKey(CacheKeyLatest, "fx_rate", "COP"))
}
