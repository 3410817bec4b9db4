package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// MarketQuote is the GORM model for the market_quotes table.
// One row per successful observation; the newest row per category is the
// "latest value" served to the rest of the platform.
type MarketQuote struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	Category   string    `gorm:"column:category;type:varchar(32);not null;index:idx_category_observed"`
	Value      float64   `gorm:"column:value;not null"`
	Unit       string    `gorm:"column:unit;type:varchar(16)"`
	ObservedAt time.Time `gorm:"column:observed_at;not null;index:idx_category_observed"`
	SourceName string    `gorm:"column:source_name;type:varchar(64)"`
	SourceURL  string    `gorm:"column:source_url;type:varchar(512)"`
	RawPayload string    `gorm:"column:raw_payload;type:mediumtext"`
	Metadata   string    `gorm:"column:metadata;type:json"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (MarketQuote) TableName() string {
	return "market_quotes"
}

// QuoteRepo implements biz.QuoteRepo. Writes go to MySQL and are published
// through the layered quote cache; latest-value reads prefer the cache.
type QuoteRepo struct {
	db     *gorm.DB
	cache  *QuoteCache
	logger *log.Helper
}

// NewQuoteRepo creates a new market quote repository.
func NewQuoteRepo(db *gorm.DB, cache *QuoteCache, logger log.Logger) *QuoteRepo {
	return &QuoteRepo{
		db:     db,
		cache:  cache,
		logger: log.NewHelper(logger),
	}
}

// SaveQuote persists one observation and refreshes the latest-value cache.
// A cache publish failure is logged, not returned: the row is the source
// of truth.
func (r *QuoteRepo) SaveQuote(ctx context.Context, q *model.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}

	row, err := toQuoteRow(q)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save quote for %s: %w", q.Category, err)
	}

	if err := r.cache.PutLatest(ctx, q); err != nil {
		r.logger.Warnw("failed to publish latest quote to cache",
			"category", q.Category,
			"error", err)
	}

	r.logger.Debugw("quote saved",
		"category", q.Category,
		"value", q.Value,
		"source", q.SourceName)

	return nil
}

// LatestQuote returns the most recent observation for a category,
// preferring the cache and falling back to MySQL. Returns nil with no
// error when the category has never been observed.
func (r *QuoteRepo) LatestQuote(ctx context.Context, category string) (*model.Quote, error) {
	if q, ok := r.cache.GetLatest(ctx, category); ok {
		return q, nil
	}

	var row MarketQuote
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("observed_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest quote for %s: %w", category, err)
	}

	q, err := fromQuoteRow(&row)
	if err != nil {
		return nil, err
	}

	// Repopulate the cache so the next read skips MySQL
	if err := r.cache.PutLatest(ctx, q); err != nil {
		r.logger.Debugw("failed to backfill quote cache", "category", category, "error", err)
	}

	return q, nil
}

// LatestObservedAt returns the timestamp of the newest observation for a
// category, or nil when none exists. Used by the freshness monitor.
func (r *QuoteRepo) LatestObservedAt(ctx context.Context, category string) (*time.Time, error) {
	var row MarketQuote
	err := r.db.WithContext(ctx).
		Select("observed_at").
		Where("category = ?", category).
		Order("observed_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest observation time for %s: %w", category, err)
	}

	t := row.ObservedAt
	return &t, nil
}

func toQuoteRow(q *model.Quote) (*MarketQuote, error) {
	meta := "{}"
	if len(q.Metadata) > 0 {
		data, err := json.Marshal(q.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal quote metadata: %w", err)
		}
		meta = string(data)
	}

	return &MarketQuote{
		Category:   q.Category,
		Value:      q.Value,
		Unit:       q.Unit,
		ObservedAt: q.ObservedAt,
		SourceName: q.SourceName,
		SourceURL:  q.SourceURL,
		RawPayload: q.RawPayload,
		Metadata:   meta,
	}, nil
}

func fromQuoteRow(row *MarketQuote) (*model.Quote, error) {
	q := &model.Quote{
		Category:   row.Category,
		Value:      row.Value,
		Unit:       row.Unit,
		ObservedAt: row.ObservedAt,
		SourceName: row.SourceName,
		SourceURL:  row.SourceURL,
		RawPayload: row.RawPayload,
	}

	if row.Metadata != "" && row.Metadata != "{}" {
		if err := json.Unmarshal([]byte(row.Metadata), &q.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quote metadata: %w", err)
		}
	}

	return q, nil
}
