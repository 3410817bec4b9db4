package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CropSignal/internal/model"
	dberrors "CropSignal/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// NewsRecord is the GORM model for the news_items table.
type NewsRecord struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	Title       string    `gorm:"column:title;type:varchar(512);not null"`
	URL         string    `gorm:"column:url;type:varchar(512);not null;uniqueIndex:idx_news_url,length:255"`
	Source      string    `gorm:"column:source;type:varchar(64)"`
	PublishedAt time.Time `gorm:"column:published_at"`
	FetchedAt   time.Time `gorm:"column:fetched_at;autoCreateTime;index"`
}

// TableName specifies the table name for GORM.
func (NewsRecord) TableName() string {
	return "news_items"
}

// NewsRepo implements biz.NewsRepo.
type NewsRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewNewsRepo creates a new regional news repository.
func NewNewsRepo(db *gorm.DB, logger log.Logger) *NewsRepo {
	return &NewsRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// SaveFeed stores the headlines carried by a news quote. The quote's raw
// payload holds the normalized JSON array of items produced by the
// provider client. Re-fetched headlines are skipped on URL conflict.
func (r *NewsRepo) SaveFeed(ctx context.Context, q *model.Quote) error {
	if q == nil {
		return fmt.Errorf("news quote is nil")
	}

	var items []model.NewsItem
	if err := json.Unmarshal([]byte(q.RawPayload), &items); err != nil {
		return fmt.Errorf("failed to decode news feed payload: %w", err)
	}
	if len(items) == 0 {
		r.logger.Debugw("news feed contained no items", "source", q.SourceName)
		return nil
	}

	var inserted, skipped int
	for _, item := range items {
		row := NewsRecord{
			Title:       item.Title,
			URL:         item.URL,
			Source:      item.Source,
			PublishedAt: item.PublishedAt,
		}
		err := r.db.WithContext(ctx).Create(&row).Error
		if err != nil {
			// Re-fetched feeds are mostly headlines we already hold.
			if dberrors.IsDuplicateKey(err) {
				skipped++
				continue
			}
			return fmt.Errorf("failed to save news item: %w", err)
		}
		inserted++
	}

	r.logger.Infow("news feed saved",
		"source", q.SourceName, "inserted", inserted, "skipped", skipped)

	return nil
}

// LatestFetchedAt returns the timestamp of the newest stored headline,
// or nil when the table is empty. Used by the freshness monitor.
func (r *NewsRepo) LatestFetchedAt(ctx context.Context) (*time.Time, error) {
	var row NewsRecord
	err := r.db.WithContext(ctx).
		Select("fetched_at").
		Order("fetched_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest news fetch time: %w", err)
	}

	t := row.FetchedAt
	return &t, nil
}
