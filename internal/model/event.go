package model

import "time"

// CircuitOpenedEvent represents a circuit breaker tripping open.
type CircuitOpenedEvent struct {
	Provider string
	Failures int64
	OpenedAt time.Time
}

// CircuitRecoveredEvent represents a circuit breaker closing after a
// successful probe.
type CircuitRecoveredEvent struct {
	Provider    string
	RecoveredAt time.Time
	DownFor     time.Duration
}
