package biz

import (
	"context"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Default breaker tuning, used when configuration leaves them unset.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 300 * time.Second
)

// CircuitBreaker is a per-provider failure-isolation state machine backed
// by the shared Redis store, so multiple process instances observe
// consistent state.
//
// The stored state only ever says closed or open; half_open is derived on
// read: a stored OPEN whose cooldown has elapsed reads as HALF_OPEN
// without a write. HALF_OPEN persists as a derived state until the next
// RecordSuccess/RecordFailure call, so an unprobed half-open breaker
// never re-expires back to open.
//
// The breaker never swallows store errors: a caller that cannot determine
// state must decline the attempt, not assume closed.
type CircuitBreaker struct {
	repo     BreakerRepo
	provider string

	failureThreshold int64
	cooldown         time.Duration

	audit   AuditLogger
	webhook WebhookService
	logger  *log.Helper

	now func() time.Time
}

// NewCircuitBreaker creates a breaker for one provider. audit and webhook
// may be nil. Non-positive threshold/cooldown fall back to the defaults.
func NewCircuitBreaker(repo BreakerRepo, provider string, failureThreshold int64, cooldown time.Duration, audit AuditLogger, webhook WebhookService, logger log.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	return &CircuitBreaker{
		repo:             repo,
		provider:         provider,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		audit:            audit,
		webhook:          webhook,
		logger:           log.NewHelper(logger),
		now:              time.Now,
	}
}

// Provider returns the provider name this breaker guards.
func (b *CircuitBreaker) Provider() string {
	return b.provider
}

// deriveState maps a raw stored record to the externally visible state.
// Invariant: a stored OPEN past its cooldown always reads as HALF_OPEN.
func (b *CircuitBreaker) deriveState(rec *model.BreakerRecord) model.CircuitState {
	if rec.State != model.CircuitOpen {
		if rec.State == "" {
			return model.CircuitClosed
		}
		return rec.State
	}
	if rec.LastFailureAt != nil && b.now().Sub(*rec.LastFailureAt) >= b.cooldown {
		return model.CircuitHalfOpen
	}
	return model.CircuitOpen
}

// GetState returns the derived state for this provider. A provider with no
// stored record is closed.
func (b *CircuitBreaker) GetState(ctx context.Context) (model.CircuitState, error) {
	rec, err := b.repo.GetRecord(ctx, b.provider)
	if err != nil {
		return "", err
	}
	return b.deriveState(rec), nil
}

// CanAttempt reports whether a call to the provider is permitted.
// HALF_OPEN permits exactly one probing attempt by caller convention; the
// caller must treat the very next failure as significant. A store error is
// returned so the caller can fail safe and decline the attempt.
func (b *CircuitBreaker) CanAttempt(ctx context.Context) (bool, error) {
	state, err := b.GetState(ctx)
	if err != nil {
		return false, err
	}
	return state != model.CircuitOpen, nil
}

// RecordSuccess clears the failure bookkeeping and closes the circuit.
// Idempotent: recording success on an already-closed breaker is a no-op
// apart from the redundant writes.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) error {
	rec, err := b.repo.GetRecord(ctx, b.provider)
	if err != nil {
		return err
	}
	wasDown := b.deriveState(rec) != model.CircuitClosed

	if err := b.repo.SetState(ctx, b.provider, model.CircuitClosed); err != nil {
		return err
	}
	if err := b.repo.ClearFailures(ctx, b.provider); err != nil {
		return err
	}

	if wasDown {
		var downFor time.Duration
		if rec.LastFailureAt != nil {
			downFor = b.now().Sub(*rec.LastFailureAt)
		}
		b.logger.Infow("circuit recovered",
			"provider", b.provider,
			"down_for", downFor)
		if b.audit != nil {
			b.audit.LogCircuitRecovered(ctx, b.provider, downFor)
		}
		if b.webhook != nil {
			event := &model.CircuitRecoveredEvent{
				Provider:    b.provider,
				RecoveredAt: b.now(),
				DownFor:     downFor,
			}
			if err := b.webhook.NotifyCircuitRecovered(ctx, event); err != nil {
				b.logger.Warnw("failed to notify circuit recovery", "provider", b.provider, "error", err)
			}
		}
	}

	return nil
}

// RecordFailure atomically increments the failure counter and stamps the
// failure time. The circuit opens once the counter reaches the threshold.
// A single failure while HALF_OPEN always reopens the circuit regardless
// of the counter, since the probe result is authoritative.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) error {
	rec, err := b.repo.GetRecord(ctx, b.provider)
	if err != nil {
		return err
	}
	priorState := b.deriveState(rec)

	failedAt := b.now()
	count, err := b.repo.IncrementFailures(ctx, b.provider, failedAt)
	if err != nil {
		return err
	}

	shouldOpen := count >= b.failureThreshold || priorState == model.CircuitHalfOpen
	if !shouldOpen {
		b.logger.Debugw("provider failure recorded",
			"provider", b.provider,
			"failures", count,
			"threshold", b.failureThreshold)
		return nil
	}

	if err := b.repo.SetState(ctx, b.provider, model.CircuitOpen); err != nil {
		return err
	}

	if priorState != model.CircuitOpen {
		b.logger.Warnw("circuit opened",
			"provider", b.provider,
			"failures", count,
			"half_open_probe_failed", priorState == model.CircuitHalfOpen)
		if b.audit != nil {
			b.audit.LogCircuitOpened(ctx, b.provider, count, failedAt)
		}
		if b.webhook != nil {
			event := &model.CircuitOpenedEvent{
				Provider: b.provider,
				Failures: count,
				OpenedAt: failedAt,
			}
			if err := b.webhook.NotifyCircuitOpened(ctx, event); err != nil {
				b.logger.Warnw("failed to notify circuit open", "provider", b.provider, "error", err)
			}
		}
	}

	return nil
}

// Status returns a read-only snapshot for operator dashboards.
func (b *CircuitBreaker) Status(ctx context.Context) (*model.BreakerStatus, error) {
	rec, err := b.repo.GetRecord(ctx, b.provider)
	if err != nil {
		return nil, err
	}

	return &model.BreakerStatus{
		Provider:         b.provider,
		State:            b.deriveState(rec),
		Failures:         rec.FailureCount,
		FailureThreshold: b.failureThreshold,
		LastFailure:      rec.LastFailureAt,
	}, nil
}

// Reset deletes all stored keys for the provider, returning it to the
// implicit closed/zero state. Returns the derived state before the reset.
func (b *CircuitBreaker) Reset(ctx context.Context) (model.CircuitState, error) {
	rec, err := b.repo.GetRecord(ctx, b.provider)
	if err != nil {
		return "", err
	}
	oldState := b.deriveState(rec)

	if err := b.repo.DeleteAll(ctx, b.provider); err != nil {
		return "", err
	}

	b.logger.Infow("circuit breaker reset", "provider", b.provider, "old_state", oldState)
	if b.audit != nil {
		b.audit.LogBreakerReset(ctx, b.provider, string(oldState))
	}

	return oldState, nil
}
