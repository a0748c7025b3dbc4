package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
)

// Pipeline DTOs

// CreatePipelineRequest is the payload for creating a pipeline.
type CreatePipelineRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdatePipelineRequest is the payload for updating a pipeline.
type UpdatePipelineRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// PipelineResponse is the pipeline representation.
type PipelineResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// PipelineFromDomain converts domain.Pipeline to PipelineResponse.
func PipelineFromDomain(p domain.Pipeline) PipelineResponse {
	return PipelineResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

// Version DTOs

// CreateVersionRequest is the payload for creating a config version.
type CreateVersionRequest struct {
	Config domain.PipelineConfig `json:"config"`
}

// VersionResponse is the pipeline version representation.
type VersionResponse struct {
	PipelineID uuid.UUID             `json:"pipeline_id"`
	Version    int                   `json:"version"`
	Config     domain.PipelineConfig `json:"config"`
	CreatedAt  time.Time             `json:"created_at"`
}

// VersionFromDomain converts domain.PipelineVersion to VersionResponse.
func VersionFromDomain(v domain.PipelineVersion) VersionResponse {
	return VersionResponse{
		PipelineID: v.PipelineID,
		Version:    v.Version,
		Config:     v.Config,
		CreatedAt:  v.CreatedAt,
	}
}

// Run DTOs

// CreateRunRequest is the payload for submitting a run.
type CreateRunRequest struct {
	Input          string `json:"input,omitempty"`
	Version        *int   `json:"version,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RunResponse is the run representation.
type RunResponse struct {
	ID             uuid.UUID  `json:"id"`
	PipelineID     uuid.UUID  `json:"pipeline_id"`
	Version        int        `json:"version"`
	Status         string     `json:"status"`
	Input          string     `json:"input,omitempty"`
	TotalCost      float64    `json:"total_cost"`
	Error          string     `json:"error,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RunFromDomain converts domain.Run to RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		PipelineID:     r.PipelineID,
		Version:        r.Version,
		Status:         string(r.Status),
		Input:          r.Input,
		TotalCost:      r.TotalCost,
		Error:          r.Error,
		IdempotencyKey: r.IdempotencyKey,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// StepResultResponse is the per-step result representation.
type StepResultResponse struct {
	ID         uuid.UUID `json:"id"`
	StepName   string    `json:"step_name"`
	StepType   string    `json:"step_type"`
	Model      string    `json:"model,omitempty"`
	Success    bool      `json:"success"`
	Output     any       `json:"output,omitempty"`
	Cost       float64   `json:"cost"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// StepResultFromDomain converts domain.StepResult to StepResultResponse.
func StepResultFromDomain(r domain.StepResult) StepResultResponse {
	return StepResultResponse{
		ID:         r.ID,
		StepName:   r.StepName,
		StepType:   r.StepType,
		Model:      r.Model,
		Success:    r.Success,
		Output:     r.Output,
		Cost:       r.Cost,
		DurationMS: r.Duration.Milliseconds(),
		Error:      r.Error,
	}
}

// Schedule DTOs

// CreateScheduleRequest is the payload for creating a schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
	Input       string `json:"input,omitempty"`
}

// UpdateScheduleRequest is the payload for updating a schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
	Input       *string `json:"input,omitempty"`
}

// SetEnabledRequest is the payload for enabling/disabling a schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse is the schedule representation.
type ScheduleResponse struct {
	ID          uuid.UUID  `json:"id"`
	PipelineID  uuid.UUID  `json:"pipeline_id"`
	Name        string     `json:"name"`
	CronExpr    string     `json:"cron_expr,omitempty"`
	IntervalSec int        `json:"interval_sec,omitempty"`
	Timezone    string     `json:"timezone"`
	Enabled     bool       `json:"enabled"`
	Input       string     `json:"input,omitempty"`
	NextDueAt   *time.Time `json:"next_due_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastRunID   *uuid.UUID `json:"last_run_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScheduleFromDomain converts domain.Schedule to ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:          s.ID,
		PipelineID:  s.PipelineID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Enabled:     s.Enabled,
		Input:       s.Input,
		NextDueAt:   s.NextDueAt,
		LastRunAt:   s.LastRunAt,
		LastRunID:   s.LastRunID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Model DTOs

// ModelResponse is a model catalog entry.
type ModelResponse struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Provider       string   `json:"provider"`
	RequiredParams []string `json:"required_params,omitempty"`
	OptionalParams []string `json:"optional_params,omitempty"`
	Default        bool     `json:"default"`
}

// Estimate DTOs

// EstimateRequest is the payload for a dry-run cost estimate.
type EstimateRequest struct {
	Config domain.PipelineConfig `json:"config"`
}

// EstimateResponse is the cost estimate representation.
type EstimateResponse struct {
	Total     float64           `json:"total"`
	Breakdown []domain.CostItem `json:"breakdown,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}
