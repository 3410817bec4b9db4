package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// Cooperative is the GORM model for the cooperatives table. The CRUD side
// of the platform owns most of these columns; this service reads them for
// stale-entity queries and writes score rollups.
type Cooperative struct {
	ID             int64      `gorm:"primaryKey;column:id"`
	Name           string     `gorm:"column:name;type:varchar(128);not null"`
	Region         string     `gorm:"column:region;type:varchar(64);index"`
	Score          float64    `gorm:"column:score"`
	LastVerifiedAt *time.Time `gorm:"column:last_verified_at;index"`
	LastScoredAt   *time.Time `gorm:"column:last_scored_at;index"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Cooperative) TableName() string {
	return "cooperatives"
}

// CooperativeRepo implements biz.CooperativeRepo.
type CooperativeRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewCooperativeRepo creates a new cooperative repository.
func NewCooperativeRepo(db *gorm.DB, logger log.Logger) *CooperativeRepo {
	return &CooperativeRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// ListAll returns every cooperative record.
func (r *CooperativeRepo) ListAll(ctx context.Context) ([]*Cooperative, error) {
	var rows []*Cooperative
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list cooperatives: %w", err)
	}
	return rows, nil
}

// ListStaleByVerification returns cooperatives whose last verification is
// older than the cutoff or missing entirely. A never-verified record
// counts as stale.
func (r *CooperativeRepo) ListStaleByVerification(ctx context.Context, olderThan time.Time) ([]*Cooperative, error) {
	var rows []*Cooperative
	err := r.db.WithContext(ctx).
		Where("last_verified_at IS NULL OR last_verified_at < ?", olderThan).
		Order("last_verified_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale cooperatives: %w", err)
	}
	return rows, nil
}

// ListStaleByScoring returns cooperatives whose score rollup is older than
// the cutoff or has never been computed.
func (r *CooperativeRepo) ListStaleByScoring(ctx context.Context, olderThan time.Time) ([]*Cooperative, error) {
	var rows []*Cooperative
	err := r.db.WithContext(ctx).
		Where("last_scored_at IS NULL OR last_scored_at < ?", olderThan).
		Order("last_scored_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unscored cooperatives: %w", err)
	}
	return rows, nil
}

// UpdateScore writes a recomputed score rollup and its timestamp.
func (r *CooperativeRepo) UpdateScore(ctx context.Context, id int64, score float64, scoredAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&Cooperative{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":          score,
			"last_scored_at": scoredAt,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update cooperative score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cooperative not found: %d", id)
	}

	r.logger.Debugw("cooperative score updated", "id", id, "score", score)

	return nil
}
