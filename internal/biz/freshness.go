package biz

import (
	"context"
	"fmt"
	"time"

	"CropSignal/internal/conf"
	"CropSignal/internal/data"
	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Entity types accepted by GetStaleEntities.
const (
	EntityCooperative      = "cooperative"
	EntityCooperativeScore = "cooperative_score"
)

// FreshnessUsecase derives data-staleness state from persisted timestamps.
// Pure read/derive: it mutates nothing and is computed on demand, so it is
// safe to query from health endpoints and the auto-refresh job alike.
type FreshnessUsecase struct {
	quotes QuoteRepo
	news   NewsRepo
	coops  CooperativeRepo

	thresholds       map[string]time.Duration
	staleCoopDefault int

	logger *log.Helper
	now    func() time.Time
}

// NewFreshnessUsecase creates the freshness monitor with per-category
// staleness thresholds from configuration.
func NewFreshnessUsecase(c *conf.Pipeline, quotes QuoteRepo, news NewsRepo, coops CooperativeRepo, logger log.Logger) *FreshnessUsecase {
	thresholds := map[string]time.Duration{
		model.CategoryCoffeePrice: 24 * time.Hour,
		model.CategoryFxRate:      24 * time.Hour,
		model.CategoryWeather:     12 * time.Hour,
		model.CategoryNews:        48 * time.Hour,
	}
	staleDays := 90

	if c != nil && c.Freshness != nil {
		f := c.Freshness
		if d := f.CoffeeMaxAge.AsDuration(); d > 0 {
			thresholds[model.CategoryCoffeePrice] = d
		}
		if d := f.FxMaxAge.AsDuration(); d > 0 {
			thresholds[model.CategoryFxRate] = d
		}
		if d := f.WeatherMaxAge.AsDuration(); d > 0 {
			thresholds[model.CategoryWeather] = d
		}
		if d := f.NewsMaxAge.AsDuration(); d > 0 {
			thresholds[model.CategoryNews] = d
		}
		if f.StaleCooperativeDays > 0 {
			staleDays = f.StaleCooperativeDays
		}
	}

	return &FreshnessUsecase{
		quotes:           quotes,
		news:             news,
		coops:            coops,
		thresholds:       thresholds,
		staleCoopDefault: staleDays,
		logger:           log.NewHelper(logger),
		now:              time.Now,
	}
}

// GetFreshnessReport classifies every tracked category against its
// configured threshold and rolls up an overall status. A category that
// has never been observed is stale with no age.
func (uc *FreshnessUsecase) GetFreshnessReport(ctx context.Context) (*model.FreshnessReport, error) {
	checkedAt := uc.now()
	report := &model.FreshnessReport{
		Status:     model.FreshnessGood,
		Categories: make(map[string]model.FreshnessEntry, len(uc.thresholds)),
		CheckedAt:  checkedAt,
	}

	for category, threshold := range uc.thresholds {
		lastUpdated, err := uc.lastObservedAt(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("failed to check freshness for %s: %w", category, err)
		}

		entry := model.FreshnessEntry{
			Category:       category,
			LastUpdatedAt:  lastUpdated,
			ThresholdHours: threshold.Hours(),
		}

		if lastUpdated == nil {
			entry.IsStale = true
		} else {
			age := checkedAt.Sub(*lastUpdated)
			ageHours := age.Hours()
			entry.AgeHours = &ageHours
			entry.IsStale = age > threshold
		}

		if entry.IsStale {
			report.Status = model.FreshnessNeedsAttention
		}
		report.Categories[category] = entry
	}

	return report, nil
}

// lastObservedAt dispatches the timestamp read: news freshness tracks the
// headline table, everything else the quote table.
func (uc *FreshnessUsecase) lastObservedAt(ctx context.Context, category string) (*time.Time, error) {
	if category == model.CategoryNews {
		return uc.news.LatestFetchedAt(ctx)
	}
	return uc.quotes.LatestObservedAt(ctx, category)
}

// GetStaleEntities returns entities whose tracked timestamp is older than
// staleDays or missing, along with the effective window used. staleDays
// <= 0 uses the configured default. An unknown entity type is a caller
// error, reported as 400.
func (uc *FreshnessUsecase) GetStaleEntities(ctx context.Context, entityType string, staleDays int) ([]model.StaleEntity, int, error) {
	if staleDays <= 0 {
		staleDays = uc.staleCoopDefault
	}
	cutoff := uc.now().AddDate(0, 0, -staleDays)

	var (
		rows []*data.Cooperative
		err  error
	)
	switch entityType {
	case EntityCooperative:
		rows, err = uc.coops.ListStaleByVerification(ctx, cutoff)
	case EntityCooperativeScore:
		rows, err = uc.coops.ListStaleByScoring(ctx, cutoff)
	default:
		return nil, 0, errors.BadRequest("UNKNOWN_ENTITY_TYPE",
			fmt.Sprintf("unknown entity type: %s", entityType))
	}
	if err != nil {
		return nil, 0, err
	}

	entities := make([]model.StaleEntity, 0, len(rows))
	for _, row := range rows {
		entity := model.StaleEntity{
			ID:     row.ID,
			Name:   row.Name,
			Region: row.Region,
		}

		tracked := row.LastVerifiedAt
		if entityType == EntityCooperativeScore {
			tracked = row.LastScoredAt
		}
		if tracked != nil {
			t := *tracked
			entity.LastUpdatedAt = &t
			ageDays := uc.now().Sub(t).Hours() / 24
			entity.AgeDays = &ageDays
		}

		entities = append(entities, entity)
	}

	return entities, staleDays, nil
}

// IsStale reports whether any tracked category currently exceeds its
// threshold. Used by the auto-refresh cron job.
func (uc *FreshnessUsecase) IsStale(ctx context.Context) (bool, error) {
	report, err := uc.GetFreshnessReport(ctx)
	if err != nil {
		return false, err
	}
	return report.Status == model.FreshnessNeedsAttention, nil
}
