package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rovesti/fabrica/internal/domain"
)

// ScheduleRepo persists recurring run schedules.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo creates a new ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create inserts a new schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	query := `
		INSERT INTO schedules (id, pipeline_id, name, cron_expr, interval_sec, timezone,
		                       enabled, input, next_due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.PipelineID,
		nullString(s.Name),
		nullString(s.CronExpr),
		nullInt(s.IntervalSec),
		s.Timezone,
		s.Enabled,
		nullString(s.Input),
		s.NextDueAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID returns a schedule by ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       input, next_due_at, last_run_at, last_run_id, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`
	return r.scanSchedule(r.pool.QueryRow(ctx, query, id))
}

// ScheduleFilter narrows List results.
type ScheduleFilter struct {
	PipelineID *uuid.UUID
	Enabled    *bool
	Limit      int
	Offset     int
}

// List returns schedules matching the filter, newest first.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       input, next_due_at, last_run_at, last_run_id, created_at, updated_at
		FROM schedules
		WHERE ($1::uuid IS NULL OR pipeline_id = $1)
		  AND ($2::boolean IS NULL OR enabled = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.PipelineID),
		filter.Enabled,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// ListDue returns enabled schedules whose next_due_at has passed.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       input, next_due_at, last_run_at, last_run_id, created_at, updated_at
		FROM schedules
		WHERE enabled = true
		  AND next_due_at IS NOT NULL
		  AND next_due_at <= $1
		ORDER BY next_due_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Update updates a schedule.
func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET name = $2, cron_expr = $3, interval_sec = $4, timezone = $5,
		    enabled = $6, input = $7, next_due_at = $8, last_run_at = $9,
		    last_run_id = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		s.ID,
		nullString(s.Name),
		nullString(s.CronExpr),
		nullInt(s.IntervalSec),
		s.Timezone,
		s.Enabled,
		nullString(s.Input),
		s.NextDueAt,
		s.LastRunAt,
		s.LastRunID,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a schedule.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled flips a schedule on or off.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE schedules SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, id, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func (r *ScheduleRepo) collect(rows pgx.Rows) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	for rows.Next() {
		s, err := r.scanScheduleFromRows(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepo) scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	var name, cronExpr, input *string
	var intervalSec *int

	err := row.Scan(
		&s.ID,
		&s.PipelineID,
		&name,
		&cronExpr,
		&intervalSec,
		&s.Timezone,
		&s.Enabled,
		&input,
		&s.NextDueAt,
		&s.LastRunAt,
		&s.LastRunID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	applyScheduleNulls(&s, name, cronExpr, input, intervalSec)
	return &s, nil
}

func (r *ScheduleRepo) scanScheduleFromRows(rows pgx.Rows) (*domain.Schedule, error) {
	var s domain.Schedule
	var name, cronExpr, input *string
	var intervalSec *int

	err := rows.Scan(
		&s.ID,
		&s.PipelineID,
		&name,
		&cronExpr,
		&intervalSec,
		&s.Timezone,
		&s.Enabled,
		&input,
		&s.NextDueAt,
		&s.LastRunAt,
		&s.LastRunID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	applyScheduleNulls(&s, name, cronExpr, input, intervalSec)
	return &s, nil
}

func applyScheduleNulls(s *domain.Schedule, name, cronExpr, input *string, intervalSec *int) {
	if name != nil {
		s.Name = *name
	}
	if cronExpr != nil {
		s.CronExpr = *cronExpr
	}
	if input != nil {
		s.Input = *input
	}
	if intervalSec != nil {
		s.IntervalSec = *intervalSec
	}
}
