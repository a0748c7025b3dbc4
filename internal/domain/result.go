package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepResult is the outcome of a single executed step.
//
// One record is produced per attempted step. Steps never reached
// (fail-fast short-circuit, config errors before execution) produce no
// record at all.
type StepResult struct {
	// ID is the unique result identifier.
	ID uuid.UUID `json:"id"`

	// RunID references the run that produced this result.
	RunID uuid.UUID `json:"run_id"`

	// Seq is the result's position within the run, starting at 0.
	// Persisted results are ordered by it, not by timestamps: a whole
	// batch shares one insertion instant.
	Seq int `json:"seq"`

	// StepName is the name of the step within the pipeline.
	StepName string `json:"step_name"`

	// StepType is the step's type, e.g. "text_to_image".
	StepType string `json:"step_type"`

	// Model is the model key the step executed with, empty for groups.
	Model string `json:"model,omitempty"`

	// Success reports whether the step produced an output.
	Success bool `json:"success"`

	// Output is the produced payload. Typically a URL or text, but a
	// step may return a structured map (e.g. analysis results).
	Output any `json:"output,omitempty"`

	// Cost is the monetary cost charged for the step.
	Cost float64 `json:"cost"`

	// Duration is the wall-clock execution time of the step.
	Duration time.Duration `json:"duration"`

	// Error holds the failure reason when Success is false.
	Error string `json:"error,omitempty"`
}

// RunReport is the aggregated outcome of a finished run.
type RunReport struct {
	// RunID references the reported run.
	RunID uuid.UUID `json:"run_id"`

	// PipelineName is the name of the executed pipeline.
	PipelineName string `json:"pipeline_name"`

	// Status is the final run status.
	Status RunStatus `json:"status"`

	// Success is true only if every attempted step succeeded.
	Success bool `json:"success"`

	// Results lists per-step outcomes in completion order.
	Results []StepResult `json:"results"`

	// TotalCost is the sum of the cost of every attempted step.
	TotalCost float64 `json:"total_cost"`

	// Duration is the total wall-clock run time.
	Duration time.Duration `json:"duration"`

	// Error holds the run-level failure reason, if any.
	Error string `json:"error,omitempty"`
}

// CostItem is the estimated cost of one generation step.
type CostItem struct {
	// StepName is the name of the estimated step.
	StepName string `json:"step_name"`

	// StepType is the step's type.
	StepType string `json:"step_type"`

	// Model is the model key used for the estimate.
	Model string `json:"model"`

	// Cost is the estimated cost in dollars.
	Cost float64 `json:"cost"`
}

// CostEstimate is a pre-execution cost projection for a pipeline.
//
// Estimates assume every step runs once with its declared parameters;
// concurrency does not change the total.
type CostEstimate struct {
	// Total is the sum over all generation steps.
	Total float64 `json:"total"`

	// Breakdown lists per-step estimates in declaration order.
	Breakdown []CostItem `json:"breakdown"`

	// Warnings lists estimate caveats, e.g. a cost limit that the
	// estimate exceeds.
	Warnings []string `json:"warnings,omitempty"`
}
