// Package service exposes the acquisition layer over HTTP. Handlers are
// thin: decode the request, call the use case, encode the result.
package service

import (
	"context"
	"strconv"
	"time"

	"CropSignal/internal/biz"
	"CropSignal/internal/data"
	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewPipelineService)

// PipelineService implements the operator HTTP surface: pipeline
// triggers, breaker status/reset, freshness and latest-value reads.
type PipelineService struct {
	pipeline  *biz.PipelineUsecase
	freshness *biz.FreshnessUsecase
	quotes    biz.QuoteRepo
	d         *data.Data
	logger    *log.Helper
}

// NewPipelineService creates a new PipelineService instance.
func NewPipelineService(pipeline *biz.PipelineUsecase, freshness *biz.FreshnessUsecase, quotes biz.QuoteRepo, d *data.Data, logger log.Logger) *PipelineService {
	return &PipelineService{
		pipeline:  pipeline,
		freshness: freshness,
		quotes:    quotes,
		d:         d,
		logger:    log.NewHelper(logger),
	}
}

// RunFullPipeline triggers a full refresh run. Always returns 200 with a
// structured result, even when stages failed: partial failure is data,
// not an HTTP error.
func (s *PipelineService) RunFullPipeline(ctx http.Context) error {
	s.logger.Infow("RunFullPipeline called")
	result := s.pipeline.RunFullPipeline(ctx)
	return ctx.Result(200, result)
}

// RunMarketPipeline triggers a market-data-only refresh run.
func (s *PipelineService) RunMarketPipeline(ctx http.Context) error {
	s.logger.Infow("RunMarketPipeline called")
	result := s.pipeline.RunMarketPipeline(ctx)
	return ctx.Result(200, result)
}

// RunIntelligencePipeline triggers a regional-intelligence-only refresh run.
func (s *PipelineService) RunIntelligencePipeline(ctx http.Context) error {
	s.logger.Infow("RunIntelligencePipeline called")
	result := s.pipeline.RunIntelligencePipeline(ctx)
	return ctx.Result(200, result)
}

// GetBreakers returns a snapshot of every registered circuit breaker.
func (s *PipelineService) GetBreakers(ctx http.Context) error {
	statuses, err := s.pipeline.GetBreakerStatus(ctx)
	if err != nil {
		s.logger.Errorw("failed to read breaker statuses", "error", err)
		return err
	}
	return ctx.Result(200, statuses)
}

// resetBreakerReply is the response of a manual breaker reset.
type resetBreakerReply struct {
	Provider string             `json:"provider"`
	OldState model.CircuitState `json:"old_state"`
	NewState model.CircuitState `json:"new_state"`
}

// ResetBreaker clears one provider's breaker. An unknown provider name is
// the one request shape that earns a 4xx on this surface.
func (s *PipelineService) ResetBreaker(ctx http.Context) error {
	provider := ctx.Vars().Get("provider")
	s.logger.Infow("ResetBreaker called", "provider", provider)

	oldState, newState, err := s.pipeline.ResetBreaker(ctx, provider)
	if err != nil {
		s.logger.Warnw("failed to reset breaker", "provider", provider, "error", err)
		return err
	}

	return ctx.Result(200, &resetBreakerReply{
		Provider: provider,
		OldState: oldState,
		NewState: newState,
	})
}

// GetFreshness returns the aggregate freshness report.
func (s *PipelineService) GetFreshness(ctx http.Context) error {
	report, err := s.freshness.GetFreshnessReport(ctx)
	if err != nil {
		s.logger.Errorw("failed to build freshness report", "error", err)
		return err
	}
	return ctx.Result(200, report)
}

// staleEntitiesReply wraps the stale entity list with its query window.
type staleEntitiesReply struct {
	EntityType string              `json:"entity_type"`
	StaleDays  int                 `json:"stale_days"`
	Entities   []model.StaleEntity `json:"entities"`
}

// GetStaleEntities returns entities whose tracked timestamp exceeds the
// requested window. entity_type defaults to "cooperative".
func (s *PipelineService) GetStaleEntities(ctx http.Context) error {
	entityType := ctx.Query().Get("entity_type")
	if entityType == "" {
		entityType = biz.EntityCooperative
	}

	staleDays := 0
	if raw := ctx.Query().Get("days"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			return errors.BadRequest("INVALID_DAYS", "days must be a positive integer")
		}
		staleDays = parsed
	}

	entities, effectiveDays, err := s.freshness.GetStaleEntities(ctx, entityType, staleDays)
	if err != nil {
		return err
	}

	return ctx.Result(200, &staleEntitiesReply{
		EntityType: entityType,
		StaleDays:  effectiveDays,
		Entities:   entities,
	})
}

// GetLatestQuote returns the most recent observation for a category.
func (s *PipelineService) GetLatestQuote(ctx http.Context) error {
	category := ctx.Query().Get("category")
	switch category {
	case model.CategoryCoffeePrice, model.CategoryFxRate, model.CategoryWeather:
	default:
		return errors.BadRequest("UNKNOWN_CATEGORY",
			"category must be one of coffee_price, fx_rate, weather")
	}

	quote, err := s.quotes.LatestQuote(ctx, category)
	if err != nil {
		s.logger.Errorw("failed to load latest quote", "category", category, "error", err)
		return err
	}
	if quote == nil {
		return errors.NotFound("NO_OBSERVATION",
			"no observation recorded for category "+category)
	}

	return ctx.Result(200, quote)
}

// Healthz is a liveness probe.
func (s *PipelineService) Healthz(ctx http.Context) error {
	reply := map[string]string{"status": "ok", "redis": "up"}

	rdb := s.d.GetRedisClient()
	if rdb == nil {
		reply["redis"] = "down"
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			reply["redis"] = "down"
		}
	}

	return ctx.Result(200, reply)
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.BadRequest("INVALID_NUMBER", "must be a positive integer")
	}
	return n, nil
}
