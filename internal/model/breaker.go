package model

import "time"

// CircuitState represents the derived state of a provider circuit breaker.
type CircuitState string

const (
	// CircuitClosed indicates normal operation, attempts allowed.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen indicates attempts are blocked until the cooldown elapses.
	CircuitOpen CircuitState = "open"
	// CircuitHalfOpen indicates a single probe attempt is allowed.
	CircuitHalfOpen CircuitState = "half_open"
)

// BreakerRecord is the raw per-provider bookkeeping persisted in Redis.
// State is what was last written; the effective state (OPEN past its
// cooldown reads as HALF_OPEN) is derived by the biz layer.
type BreakerRecord struct {
	State         CircuitState
	FailureCount  int64
	LastFailureAt *time.Time
}

// BreakerStatus is a read-only snapshot for operator dashboards.
type BreakerStatus struct {
	Provider         string       `json:"provider"`
	State            CircuitState `json:"state"`
	Failures         int64        `json:"failures"`
	FailureThreshold int64        `json:"failure_threshold"`
	LastFailure      *time.Time   `json:"last_failure,omitempty"`
}
