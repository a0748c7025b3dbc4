package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule triggers pipeline runs automatically.
//
// A schedule fires either by cron expression ("0 9 * * *") or by a
// fixed interval in seconds. The scheduler checks next_due_at and
// submits a run when the time has come.
type Schedule struct {
	// ID is the unique schedule identifier.
	ID uuid.UUID `json:"id"`

	// PipelineID references the pipeline to run.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty"`

	// CronExpr is a standard 5-field cron expression.
	// Examples:
	//   "0 9 * * *"   every day at 09:00
	//   "*/5 * * * *" every 5 minutes
	// When CronExpr is set, IntervalSec is ignored.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec is the number of seconds between runs.
	// Used only when CronExpr is empty.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone for cron evaluation. Defaults to "UTC".
	Timezone string `json:"timezone"`

	// Enabled disables the schedule when false.
	Enabled bool `json:"enabled"`

	// Input is passed as the initial input of every submitted run.
	Input string `json:"input,omitempty"`

	// NextDueAt is the next fire time. The scheduler submits a run
	// when now >= NextDueAt, then computes a new NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt is the time of the last submitted run.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastRunID is the ID of the last submitted run.
	LastRunID *uuid.UUID `json:"last_run_id,omitempty"`

	// CreatedAt is the schedule creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last modification timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron reports whether the schedule uses a cron expression.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval reports whether the schedule uses a fixed interval.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue reports whether the schedule should fire at now.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordRun records a submitted run and advances the fire time.
func (s *Schedule) RecordRun(runID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastRunID = &runID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
