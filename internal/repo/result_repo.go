package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rovesti/fabrica/internal/domain"
)

// ResultRepo persists per-step results of finished runs.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo creates a new ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// Create inserts a single step result.
func (r *ResultRepo) Create(ctx context.Context, res *domain.StepResult) error {
	outputJSON, err := json.Marshal(res.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		INSERT INTO step_results (id, run_id, seq, step_name, step_type, model,
		                          success, output, cost, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`
	_, err = r.pool.Exec(ctx, query,
		res.ID,
		res.RunID,
		res.Seq,
		res.StepName,
		res.StepType,
		nullString(res.Model),
		res.Success,
		outputJSON,
		res.Cost,
		res.Duration.Milliseconds(),
		nullString(res.Error),
	)
	if err != nil {
		return fmt.Errorf("insert step result: %w", err)
	}
	return nil
}

// CreateBatch inserts all results of a run in one round trip.
func (r *ResultRepo) CreateBatch(ctx context.Context, results []domain.StepResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO step_results (id, run_id, seq, step_name, step_type, model,
		                          success, output, cost, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`
	for i := range results {
		res := &results[i]
		outputJSON, err := json.Marshal(res.Output)
		if err != nil {
			return fmt.Errorf("marshal output for %s: %w", res.StepName, err)
		}
		batch.Queue(query,
			res.ID,
			res.RunID,
			res.Seq,
			res.StepName,
			res.StepType,
			nullString(res.Model),
			res.Success,
			outputJSON,
			res.Cost,
			res.Duration.Milliseconds(),
			nullString(res.Error),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert step results: %w", err)
		}
	}
	return nil
}

// ListByRun returns all step results of a run in execution order.
// created_at cannot order within a run: the whole batch is inserted
// with one NOW(), so seq carries the order instead.
func (r *ResultRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.StepResult, error) {
	query := `
		SELECT id, run_id, seq, step_name, step_type, model, success,
		       output, cost, duration_ms, error
		FROM step_results
		WHERE run_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list step results: %w", err)
	}
	defer rows.Close()

	var results []domain.StepResult
	for rows.Next() {
		var res domain.StepResult
		var model, errMsg *string
		var outputJSON []byte
		var durationMS int64

		if err := rows.Scan(
			&res.ID,
			&res.RunID,
			&res.Seq,
			&res.StepName,
			&res.StepType,
			&model,
			&res.Success,
			&outputJSON,
			&res.Cost,
			&durationMS,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}

		if model != nil {
			res.Model = *model
		}
		if errMsg != nil {
			res.Error = *errMsg
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		if outputJSON != nil {
			if err := json.Unmarshal(outputJSON, &res.Output); err != nil {
				return nil, fmt.Errorf("unmarshal output: %w", err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
