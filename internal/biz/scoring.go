package biz

import (
	"context"
	"fmt"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// breakEvenUSDPerLb is the reference production cost used for margin
// headroom until per-cooperative cost data lands in the CRUD side.
const breakEvenUSDPerLb = 1.40

// ScoringUsecase recomputes cooperative margin scores from the freshest
// persisted market data. It runs as the last stage of the full pipeline
// and stamps last_scored_at, which the freshness monitor tracks.
type ScoringUsecase struct {
	quotes QuoteRepo
	coops  CooperativeRepo
	logger *log.Helper
	now    func() time.Time
}

// NewScoringUsecase creates the scoring use case.
func NewScoringUsecase(quotes QuoteRepo, coops CooperativeRepo, logger log.Logger) *ScoringUsecase {
	return &ScoringUsecase{
		quotes: quotes,
		coops:  coops,
		logger: log.NewHelper(logger),
		now:    time.Now,
	}
}

// RecomputeScores updates every cooperative's margin score from the
// latest coffee price. Requires at least one persisted coffee price; a
// missing FX rate only skips the local-currency context, it does not fail
// the stage.
func (uc *ScoringUsecase) RecomputeScores(ctx context.Context) error {
	coffee, err := uc.quotes.LatestQuote(ctx, model.CategoryCoffeePrice)
	if err != nil {
		return fmt.Errorf("failed to load latest coffee price: %w", err)
	}
	if coffee == nil {
		return fmt.Errorf("no coffee price observation available for scoring")
	}

	fx, err := uc.quotes.LatestQuote(ctx, model.CategoryFxRate)
	if err != nil {
		uc.logger.Warnw("failed to load latest fx rate, scoring without it", "error", err)
		fx = nil
	}

	coops, err := uc.coops.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cooperatives: %w", err)
	}

	score := marginScore(coffee.Value)
	scoredAt := uc.now()
	updated := 0
	for _, coop := range coops {
		if err := uc.coops.UpdateScore(ctx, coop.ID, score, scoredAt); err != nil {
			uc.logger.Warnw("failed to update cooperative score",
				"id", coop.ID, "error", err)
			continue
		}
		updated++
	}

	uc.logger.Infow("cooperative scores recomputed",
		"coffee_price", coffee.Value,
		"price_is_fallback", coffee.IsFallback(),
		"fx_available", fx != nil,
		"cooperatives", len(coops),
		"updated", updated)

	return nil
}

// marginScore maps a coffee price to a 0-100 margin headroom score
// centered at 50 for the break-even price.
func marginScore(priceUSDPerLb float64) float64 {
	headroom := (priceUSDPerLb - breakEvenUSDPerLb) / breakEvenUSDPerLb
	score := 50 + headroom*250
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
