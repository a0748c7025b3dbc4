package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rovesti/fabrica/internal/domain"
)

// RunRepo persists pipeline runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create inserts a new run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, pipeline_id, version, status, input, total_cost,
		                  error, idempotency_key, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.PipelineID,
		run.Version,
		run.Status,
		nullString(run.Input),
		run.TotalCost,
		nullString(run.Error),
		nullString(run.IdempotencyKey),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID returns a run by ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, pipeline_id, version, status, input, total_cost,
		       error, idempotency_key, started_at, finished_at, created_at
		FROM runs
		WHERE id = $1
	`
	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey returns a run by its idempotency key.
func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Run, error) {
	query := `
		SELECT id, pipeline_id, version, status, input, total_cost,
		       error, idempotency_key, started_at, finished_at, created_at
		FROM runs
		WHERE idempotency_key = $1
	`
	return r.scanRun(r.pool.QueryRow(ctx, query, key))
}

// RunFilter narrows List results.
type RunFilter struct {
	PipelineID *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}

// List returns runs matching the filter, newest first.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT id, pipeline_id, version, status, input, total_cost,
		       error, idempotency_key, started_at, finished_at, created_at
		FROM runs
		WHERE ($1::uuid IS NULL OR pipeline_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.PipelineID),
		nullString(filter.Status),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := r.scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListPending returns the oldest PENDING runs, up to limit. Used by the
// poll fallback when the broker is unavailable.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `
		SELECT id, pipeline_id, version, status, input, total_cost,
		       error, idempotency_key, started_at, finished_at, created_at
		FROM runs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.RunStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := r.scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Update updates a run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, total_cost = $3, error = $4,
		    started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.TotalCost,
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func (r *RunRepo) scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var input, errMsg, idemKey *string

	err := row.Scan(
		&run.ID,
		&run.PipelineID,
		&run.Version,
		&run.Status,
		&input,
		&run.TotalCost,
		&errMsg,
		&idemKey,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if input != nil {
		run.Input = *input
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	if idemKey != nil {
		run.IdempotencyKey = *idemKey
	}
	return &run, nil
}

func (r *RunRepo) scanRunFromRows(rows pgx.Rows) (*domain.Run, error) {
	var run domain.Run
	var input, errMsg, idemKey *string

	err := rows.Scan(
		&run.ID,
		&run.PipelineID,
		&run.Version,
		&run.Status,
		&input,
		&run.TotalCost,
		&errMsg,
		&idemKey,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if input != nil {
		run.Input = *input
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	if idemKey != nil {
		run.IdempotencyKey = *idemKey
	}
	return &run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
