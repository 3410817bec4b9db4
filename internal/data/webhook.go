package data

import (
	"context"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// NoopWebhookService only logs breaker events. An HTTP webhook sender can
// replace it once the ops channel is decided.
type NoopWebhookService struct {
	logger *log.Helper
}

// NewNoopWebhookService creates a new noop webhook service.
func NewNoopWebhookService(logger log.Logger) *NoopWebhookService {
	return &NoopWebhookService{
		logger: log.NewHelper(logger),
	}
}

// NotifyCircuitOpened logs a circuit opened event.
func (s *NoopWebhookService) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	s.logger.Infow("circuit opened (webhook disabled)",
		"provider", event.Provider,
		"failures", event.Failures,
		"opened_at", event.OpenedAt)
	return nil
}

// NotifyCircuitRecovered logs a circuit recovered event.
func (s *NoopWebhookService) NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error {
	s.logger.Infow("circuit recovered (webhook disabled)",
		"provider", event.Provider,
		"recovered_at", event.RecoveredAt,
		"down_for", event.DownFor)
	return nil
}
