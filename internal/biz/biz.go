// Package biz contains business logic layer implementations.
// This layer holds the core business rules and domain models.
package biz

import (
	"CropSignal/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewPipelineUsecase,
	NewFreshnessUsecase,
	NewScoringUsecase,
	NewAutoRefreshTask,
	// Import data layer providers
	data.NewAuditLogger,
	data.NewNoopWebhookService,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(BreakerRepo), new(*data.BreakerRepo)),
	wire.Bind(new(QuoteRepo), new(*data.QuoteRepo)),
	wire.Bind(new(NewsRepo), new(*data.NewsRepo)),
	wire.Bind(new(CooperativeRepo), new(*data.CooperativeRepo)),
	wire.Bind(new(AuditLogger), new(*data.AuditLoggerImpl)),
	wire.Bind(new(WebhookService), new(*data.NoopWebhookService)),
)
