package model

import "time"

// Freshness roll-up statuses.
const (
	FreshnessGood           = "good"
	FreshnessNeedsAttention = "needs_attention"
)

// FreshnessEntry is the derived staleness state of one tracked data
// category. Computed on demand from persisted timestamps, never stored.
type FreshnessEntry struct {
	Category       string     `json:"category"`
	LastUpdatedAt  *time.Time `json:"last_updated_at,omitempty"`
	AgeHours       *float64   `json:"age_hours,omitempty"`
	ThresholdHours float64    `json:"threshold_hours"`
	IsStale        bool       `json:"is_stale"`
}

// FreshnessReport aggregates per-category freshness with an overall status.
type FreshnessReport struct {
	Status     string                    `json:"status"`
	Categories map[string]FreshnessEntry `json:"categories"`
	CheckedAt  time.Time                 `json:"checked_at"`
}

// StaleEntity is a tracked record whose last verification or scoring is
// older than the requested window, or missing entirely.
type StaleEntity struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Region        string     `json:"region,omitempty"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
	AgeDays       *float64   `json:"age_days,omitempty"`
}
