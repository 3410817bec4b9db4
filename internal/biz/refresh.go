package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// AutoRefreshTask runs the market pipeline when any tracked category has
// gone stale. It is invoked from the cron scheduler in cmd.
type AutoRefreshTask struct {
	freshness *FreshnessUsecase
	pipeline  *PipelineUsecase
	logger    *log.Helper
}

// NewAutoRefreshTask creates the scheduled refresh task.
func NewAutoRefreshTask(freshness *FreshnessUsecase, pipeline *PipelineUsecase, logger log.Logger) *AutoRefreshTask {
	return &AutoRefreshTask{
		freshness: freshness,
		pipeline:  pipeline,
		logger:    log.NewHelper(logger),
	}
}

// RefreshIfStale checks freshness and, when at least one category exceeds
// its staleness threshold, runs the market pipeline. Returns whether a
// run was triggered.
func (t *AutoRefreshTask) RefreshIfStale(ctx context.Context) (bool, error) {
	stale, err := t.freshness.IsStale(ctx)
	if err != nil {
		return false, err
	}
	if !stale {
		t.logger.Debug("all categories fresh, skipping auto-refresh")
		return false, nil
	}

	result := t.pipeline.RunMarketPipeline(ctx)
	t.logger.Infow("auto-refresh market run finished",
		"status", result.Status, "duration_seconds", result.DurationSeconds)

	return true, nil
}
