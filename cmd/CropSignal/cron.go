package main

import (
	"context"
	"time"

	"CropSignal/internal/biz"
	"CropSignal/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartAutoRefreshCron schedules the freshness-driven refresh job. The
// schedule comes from pipeline.cron_spec (seconds field included); an
// empty spec disables the job.
func StartAutoRefreshCron(c *conf.Pipeline, task *biz.AutoRefreshTask, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	if c == nil || c.CronSpec == "" {
		helper.Info("auto-refresh cron disabled")
		return nil
	}

	sched := cron.New(cron.WithSeconds())

	_, err := sched.AddFunc(c.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		triggered, err := task.RefreshIfStale(ctx)
		if err != nil {
			helper.Errorw("auto-refresh job failed", "error", err)
			return
		}
		if triggered {
			helper.Info("auto-refresh job triggered a market run")
		}
	})
	if err != nil {
		helper.Errorw("failed to register auto-refresh cron job", "error", err, "spec", c.CronSpec)
		return nil
	}

	sched.Start()
	helper.Infow("auto-refresh cron job started", "spec", c.CronSpec)

	return sched
}
