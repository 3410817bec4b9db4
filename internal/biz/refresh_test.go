package biz

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoRefresh_TriggersWhenStale(t *testing.T) {
	f := newPipelineFixture()
	logger := log.NewStdLogger(os.Stdout)

	// Nothing observed yet: everything is stale.
	freshness := newTestFreshness(f.quotes, f.news, newMemCoopRepo())
	task := NewAutoRefreshTask(freshness, f.uc, logger)

	triggered, err := task.RefreshIfStale(context.Background())
	require.NoError(t, err)
	assert.True(t, triggered)

	// The market run happened and persisted quotes.
	assert.NotNil(t, f.quotes.latest["coffee_price"])
}

func TestAutoRefresh_SkipsWhenFresh(t *testing.T) {
	f := newPipelineFixture()
	logger := log.NewStdLogger(os.Stdout)

	// Run once so market quotes are fresh, and backdate a news fetch.
	f.uc.RunMarketPipeline(context.Background())
	fetched := time.Now().Add(-time.Hour)
	f.news.fetchedAt = &fetched

	freshness := newTestFreshness(f.quotes, f.news, newMemCoopRepo())
	task := NewAutoRefreshTask(freshness, f.uc, logger)

	f.coffee.called = false
	triggered, err := task.RefreshIfStale(context.Background())
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.False(t, f.coffee.called, "fresh data must not trigger a run")
}
