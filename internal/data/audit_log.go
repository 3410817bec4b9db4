package data

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// AuditLog is the GORM model for acquisition_audit_logs table.
type AuditLog struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	Provider   string    `gorm:"column:provider;type:varchar(64);not null;index"`
	ActionType string    `gorm:"column:action_type;type:varchar(50);not null"`
	Details    string    `gorm:"column:details;type:json"` // JSON string
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (AuditLog) TableName() string {
	return "acquisition_audit_logs"
}

// AuditLoggerImpl implements biz.AuditLogger interface.
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *AuditLog
	logger  *log.Helper
}

// NewAuditLogger creates a new audit logger with async channel.
func NewAuditLogger(db *gorm.DB, logger log.Logger) *AuditLoggerImpl {
	al := &AuditLoggerImpl{
		db:      db,
		logChan: make(chan *AuditLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
	}

	go al.start()

	return al
}

// start processes audit log events from channel.
func (a *AuditLoggerImpl) start() {
	for event := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
			a.logger.Errorw("failed to write audit log",
				"provider", event.Provider,
				"action_type", event.ActionType,
				"error", err)
		} else {
			a.logger.Debugw("audit log written",
				"provider", event.Provider,
				"action_type", event.ActionType)
		}
	}
}

// enqueue sends an event to the writer goroutine without blocking.
func (a *AuditLoggerImpl) enqueue(event *AuditLog) {
	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("audit log channel full, dropping event",
			"provider", event.Provider,
			"action_type", event.ActionType)
	}
}

// LogCircuitOpened logs a circuit breaker tripping open.
func (a *AuditLoggerImpl) LogCircuitOpened(ctx context.Context, provider string, failures int64, openedAt time.Time) {
	details := map[string]interface{}{
		"failures":  failures,
		"opened_at": openedAt.Format(time.RFC3339),
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	a.enqueue(&AuditLog{
		Provider:   provider,
		ActionType: "CIRCUIT_OPENED",
		Details:    string(detailsJSON),
	})
}

// LogCircuitRecovered logs a circuit breaker closing after a successful probe.
func (a *AuditLoggerImpl) LogCircuitRecovered(ctx context.Context, provider string, downFor time.Duration) {
	details := map[string]interface{}{
		"down_seconds": downFor.Seconds(),
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	a.enqueue(&AuditLog{
		Provider:   provider,
		ActionType: "CIRCUIT_RECOVERED",
		Details:    string(detailsJSON),
	})
}

// LogBreakerReset logs a manual operator reset.
func (a *AuditLoggerImpl) LogBreakerReset(ctx context.Context, provider string, oldState string) {
	details := map[string]interface{}{
		"old_state": oldState,
		"new_state": "closed",
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	a.enqueue(&AuditLog{
		Provider:   provider,
		ActionType: "BREAKER_RESET",
		Details:    string(detailsJSON),
	})
}

// LogPipelineRun logs the aggregate outcome of one pipeline run.
func (a *AuditLoggerImpl) LogPipelineRun(ctx context.Context, name string, status string, durationSeconds float64, errorCount int) {
	details := map[string]interface{}{
		"status":           status,
		"duration_seconds": durationSeconds,
		"error_count":      errorCount,
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	a.enqueue(&AuditLog{
		Provider:   name,
		ActionType: "PIPELINE_RUN",
		Details:    string(detailsJSON),
	})
}
