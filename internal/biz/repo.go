package biz

import (
	"context"
	"time"

	"CropSignal/internal/data"
	"CropSignal/internal/model"
)

// BreakerRepo defines the circuit breaker storage interface.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// Implementation is in data layer (data.BreakerRepo, Redis-backed).
//
// Every write must be a single atomic store primitive: IncrementFailures
// uses the store's atomic increment, never read-then-write.
type BreakerRepo interface {
	GetRecord(ctx context.Context, provider string) (*model.BreakerRecord, error)
	IncrementFailures(ctx context.Context, provider string, at time.Time) (int64, error)
	SetState(ctx context.Context, provider string, state model.CircuitState) error
	ClearFailures(ctx context.Context, provider string) error
	DeleteAll(ctx context.Context, provider string) error
}

// QuoteRepo defines the market quote storage interface.
// Implementation is in data layer (data.QuoteRepo).
type QuoteRepo interface {
	SaveQuote(ctx context.Context, q *model.Quote) error
	LatestQuote(ctx context.Context, category string) (*model.Quote, error)
	LatestObservedAt(ctx context.Context, category string) (*time.Time, error)
}

// NewsRepo defines the regional news storage interface.
// Implementation is in data layer (data.NewsRepo).
type NewsRepo interface {
	SaveFeed(ctx context.Context, q *model.Quote) error
	LatestFetchedAt(ctx context.Context) (*time.Time, error)
}

// CooperativeRepo defines the cooperative record interface.
// Implementation is in data layer (data.CooperativeRepo).
type CooperativeRepo interface {
	ListAll(ctx context.Context) ([]*data.Cooperative, error)
	ListStaleByVerification(ctx context.Context, olderThan time.Time) ([]*data.Cooperative, error)
	ListStaleByScoring(ctx context.Context, olderThan time.Time) ([]*data.Cooperative, error)
	UpdateScore(ctx context.Context, id int64, score float64, scoredAt time.Time) error
}

// AuditLogger defines the interface for audit logging.
type AuditLogger interface {
	LogCircuitOpened(ctx context.Context, provider string, failures int64, openedAt time.Time)
	LogCircuitRecovered(ctx context.Context, provider string, downFor time.Duration)
	LogBreakerReset(ctx context.Context, provider string, oldState string)
	LogPipelineRun(ctx context.Context, name string, status string, durationSeconds float64, errorCount int)
}

// WebhookService defines the interface for breaker event notifications.
type WebhookService interface {
	NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error
	NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error
}
