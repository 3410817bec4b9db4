package biz

import (
	"context"
	"fmt"
	"time"

	"CropSignal/internal/conf"
	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Stage names, which double as the provider identity of each breaker.
const (
	StageFxRates     = "fx_rates"
	StageCoffeePrice = "coffee_prices"
	StageWeather     = "weather"
	StageNews        = "news"
	StageScoring     = "scoring"
)

// Chains groups the fallback chains the orchestrator runs, one per data
// category. Constructed by the provider package from configuration.
type Chains struct {
	Coffee  *FallbackChain
	Fx      *FallbackChain
	Weather *FallbackChain
	News    *FallbackChain
}

// pipelineStage is one named unit of work, gated by its own breaker.
type pipelineStage struct {
	name string
	run  func(ctx context.Context) error
}

// PipelineUsecase coordinates multi-stage refresh runs. Stage independence
// is the key property: one provider's outage never prevents unrelated
// stages from running or from updating their own breaker state, so a run
// is a sequence of independent gate/run/record blocks, never a
// transaction. Concurrent runs are safe because the breaker store writes
// are individually atomic; runs are not serialized against each other.
type PipelineUsecase struct {
	breakers map[string]*CircuitBreaker
	stages   []pipelineStage

	audit  AuditLogger
	logger *log.Helper
	now    func() time.Time
}

// Stage subsets for the scoped manual triggers.
var (
	marketStages       = []string{StageFxRates, StageCoffeePrice, StageWeather}
	intelligenceStages = []string{StageNews, StageScoring}
)

// NewPipelineUsecase wires the orchestrator: one breaker per stage, the
// per-category fallback chains, and the persistence step for each stage.
func NewPipelineUsecase(
	c *conf.Pipeline,
	repo BreakerRepo,
	chains *Chains,
	quotes QuoteRepo,
	news NewsRepo,
	scoring *ScoringUsecase,
	audit AuditLogger,
	webhook WebhookService,
	logger log.Logger,
) *PipelineUsecase {
	var (
		threshold int64
		cooldown  time.Duration
	)
	if c != nil && c.Breaker != nil {
		threshold = c.Breaker.FailureThreshold
		cooldown = c.Breaker.Cooldown.AsDuration()
	}

	uc := &PipelineUsecase{
		breakers: make(map[string]*CircuitBreaker),
		audit:    audit,
		logger:   log.NewHelper(logger),
		now:      time.Now,
	}

	fetchAndSave := func(chain *FallbackChain) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			q := chain.Fetch(ctx)
			if q == nil {
				return fmt.Errorf("all %s providers exhausted", chain.Category())
			}
			return quotes.SaveQuote(ctx, q)
		}
	}

	uc.stages = []pipelineStage{
		{name: StageFxRates, run: fetchAndSave(chains.Fx)},
		{name: StageCoffeePrice, run: fetchAndSave(chains.Coffee)},
		{name: StageWeather, run: fetchAndSave(chains.Weather)},
		{name: StageNews, run: func(ctx context.Context) error {
			q := chains.News.Fetch(ctx)
			if q == nil {
				return fmt.Errorf("all news providers exhausted")
			}
			return news.SaveFeed(ctx, q)
		}},
		{name: StageScoring, run: func(ctx context.Context) error {
			return scoring.RecomputeScores(ctx)
		}},
	}

	for _, st := range uc.stages {
		uc.breakers[st.name] = NewCircuitBreaker(repo, st.name, threshold, cooldown, audit, webhook, logger)
	}

	return uc
}

// RunFullPipeline executes every stage in order.
func (uc *PipelineUsecase) RunFullPipeline(ctx context.Context) *model.PipelineRunResult {
	return uc.runStages(ctx, "full", uc.stages)
}

// RunMarketPipeline refreshes only the market data stages (FX, coffee
// price, weather), enabling a partial manual trigger.
func (uc *PipelineUsecase) RunMarketPipeline(ctx context.Context) *model.PipelineRunResult {
	return uc.runStages(ctx, "market", uc.selectStages(marketStages))
}

// RunIntelligencePipeline refreshes only the regional intelligence stages
// (news, scoring).
func (uc *PipelineUsecase) RunIntelligencePipeline(ctx context.Context) *model.PipelineRunResult {
	return uc.runStages(ctx, "intelligence", uc.selectStages(intelligenceStages))
}

func (uc *PipelineUsecase) selectStages(names []string) []pipelineStage {
	selected := make([]pipelineStage, 0, len(names))
	for _, st := range uc.stages {
		for _, name := range names {
			if st.name == name {
				selected = append(selected, st)
				break
			}
		}
	}
	return selected
}

// runStages executes stages sequentially, gating each behind its breaker
// and recording per-stage outcomes. A blocked or failed stage never
// aborts the run.
func (uc *PipelineUsecase) runStages(ctx context.Context, runName string, stages []pipelineStage) *model.PipelineRunResult {
	result := &model.PipelineRunResult{
		StartedAt:  uc.now(),
		Operations: make([]model.StageResult, 0, len(stages)),
		Errors:     []string{},
	}

	uc.logger.Infow("pipeline run started", "pipeline", runName, "stages", len(stages))

	for _, st := range stages {
		br := uc.breakers[st.name]

		canAttempt, err := br.CanAttempt(ctx)
		if err != nil {
			// Store unavailable: fail safe, decline the attempt. The
			// failure counter is not touched since the provider itself
			// was never tried.
			msg := fmt.Sprintf("%s: breaker state unavailable: %v", st.name, err)
			result.Operations = append(result.Operations, model.StageResult{
				Name:    st.name,
				Outcome: model.StageFailed,
				Error:   msg,
			})
			result.Errors = append(result.Errors, msg)
			uc.logger.Errorw("stage declined, breaker state unavailable",
				"pipeline", runName, "stage", st.name, "error", err)
			continue
		}

		if !canAttempt {
			result.Operations = append(result.Operations, model.StageResult{
				Name:    st.name,
				Outcome: model.StageSkipped,
				Reason:  "circuit open",
			})
			uc.logger.Infow("stage skipped, circuit open",
				"pipeline", runName, "stage", st.name)
			continue
		}

		if err := st.run(ctx); err != nil {
			if recErr := br.RecordFailure(ctx); recErr != nil {
				uc.logger.Warnw("failed to record stage failure on breaker",
					"stage", st.name, "error", recErr)
			}
			msg := fmt.Sprintf("%s: %v", st.name, err)
			result.Operations = append(result.Operations, model.StageResult{
				Name:    st.name,
				Outcome: model.StageFailed,
				Error:   msg,
			})
			result.Errors = append(result.Errors, msg)
			uc.logger.Warnw("stage failed",
				"pipeline", runName, "stage", st.name, "error", err)
			continue
		}

		if recErr := br.RecordSuccess(ctx); recErr != nil {
			uc.logger.Warnw("failed to record stage success on breaker",
				"stage", st.name, "error", recErr)
		}
		result.Operations = append(result.Operations, model.StageResult{
			Name:    st.name,
			Outcome: model.StageOK,
		})
	}

	result.Finalize(uc.now())

	uc.logger.Infow("pipeline run completed",
		"pipeline", runName,
		"status", result.Status,
		"duration_seconds", result.DurationSeconds,
		"errors", len(result.Errors))

	if uc.audit != nil {
		uc.audit.LogPipelineRun(ctx, runName, string(result.Status), result.DurationSeconds, len(result.Errors))
	}

	return result
}

// GetBreakerStatus returns a snapshot of every registered breaker, keyed
// by provider name.
func (uc *PipelineUsecase) GetBreakerStatus(ctx context.Context) (map[string]*model.BreakerStatus, error) {
	statuses := make(map[string]*model.BreakerStatus, len(uc.breakers))
	for name, br := range uc.breakers {
		status, err := br.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read breaker status for %s: %w", name, err)
		}
		statuses[name] = status
	}
	return statuses, nil
}

// ResetBreaker clears one provider's breaker and returns its old and new
// states. An unknown provider name is a caller error, reported as 404.
func (uc *PipelineUsecase) ResetBreaker(ctx context.Context, provider string) (oldState, newState model.CircuitState, err error) {
	br, ok := uc.breakers[provider]
	if !ok {
		return "", "", errors.NotFound("PROVIDER_NOT_FOUND",
			fmt.Sprintf("unknown provider: %s", provider))
	}

	oldState, err = br.Reset(ctx)
	if err != nil {
		return "", "", err
	}

	return oldState, model.CircuitClosed, nil
}
