package model

import "time"

// PipelineStatus is the aggregate outcome of one pipeline run.
type PipelineStatus string

const (
	// PipelineOK means every stage succeeded.
	PipelineOK PipelineStatus = "ok"
	// PipelinePartial means at least one stage succeeded and at least one
	// failed or was skipped.
	PipelinePartial PipelineStatus = "partial"
	// PipelineFailed means no stage succeeded.
	PipelineFailed PipelineStatus = "failed"
)

// Stage outcomes recorded in a PipelineRunResult.
const (
	StageOK      = "ok"
	StageFailed  = "failed"
	StageSkipped = "skipped"
)

// StageResult is the outcome of one named stage inside a pipeline run.
type StageResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// PipelineRunResult aggregates timing and per-stage outcomes of one run.
// It is mutated as stages complete and immutable once returned.
type PipelineRunResult struct {
	Status          PipelineStatus `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
	DurationSeconds float64        `json:"duration_seconds"`
	Operations      []StageResult  `json:"operations"`
	Errors          []string       `json:"errors"`
}

// Finalize computes the aggregate status and timing from the recorded
// stage outcomes. Called exactly once, after the last stage.
func (r *PipelineRunResult) Finalize(completedAt time.Time) {
	r.CompletedAt = completedAt
	r.DurationSeconds = completedAt.Sub(r.StartedAt).Seconds()

	succeeded := 0
	for _, op := range r.Operations {
		if op.Outcome == StageOK {
			succeeded++
		}
	}
	switch {
	case succeeded == len(r.Operations) && len(r.Operations) > 0:
		r.Status = PipelineOK
	case succeeded > 0:
		r.Status = PipelinePartial
	default:
		r.Status = PipelineFailed
	}
}
