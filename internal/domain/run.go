package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run is one execution of a pipeline version.
//
// A run is created when a user submits a pipeline (API/CLI) or when
// the scheduler fires a schedule. It pins the version it executes.
type Run struct {
	// ID is the unique run identifier.
	ID uuid.UUID `json:"id"`

	// PipelineID references the executed pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version is the pipeline version being executed.
	Version int `json:"version"`

	// Status is the current run status.
	Status RunStatus `json:"status"`

	// Input is the initial input bound to the {{input}} token.
	Input string `json:"input,omitempty"`

	// TotalCost is the accumulated cost of all attempted steps.
	TotalCost float64 `json:"total_cost"`

	// Error holds the failure reason when Status is FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey prevents duplicate runs, e.g. for scheduled runs
	// it is "{schedule_id}_{next_due_at}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt is set when the run transitions to RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt is set when the run reaches a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt is the run creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// Duration returns the wall-clock execution time, or 0 while the run
// has not finished.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished reports whether the run reached a terminal status.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning transitions the run to RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkCompleted transitions the run to COMPLETED with its final cost.
func (r *Run) MarkCompleted(totalCost float64) {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
	r.TotalCost = totalCost
}

// MarkFailed transitions the run to FAILED with an error.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled transitions the run to CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}
