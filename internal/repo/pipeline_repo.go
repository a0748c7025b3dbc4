package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rovesti/fabrica/internal/domain"
)

// PipelineRepo persists pipelines and their immutable config versions.
type PipelineRepo struct {
	pool *pgxpool.Pool
}

// NewPipelineRepo creates a new PipelineRepo.
func NewPipelineRepo(pool *pgxpool.Pool) *PipelineRepo {
	return &PipelineRepo{pool: pool}
}

// --- Pipeline CRUD ---

// Create inserts a new pipeline.
func (r *PipelineRepo) Create(ctx context.Context, p *domain.Pipeline) error {
	query := `
		INSERT INTO pipelines (id, name, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		nullString(p.Description),
		p.IsActive,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

// GetByID returns a pipeline by ID.
func (r *PipelineRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM pipelines
		WHERE id = $1
	`
	return r.scanPipeline(r.pool.QueryRow(ctx, query, id))
}

// GetByName returns a pipeline by its unique name.
func (r *PipelineRepo) GetByName(ctx context.Context, name string) (*domain.Pipeline, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM pipelines
		WHERE name = $1
	`
	return r.scanPipeline(r.pool.QueryRow(ctx, query, name))
}

// List returns all pipelines, newest first.
func (r *PipelineRepo) List(ctx context.Context) ([]domain.Pipeline, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM pipelines
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []domain.Pipeline
	for rows.Next() {
		var p domain.Pipeline
		var description *string
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&description,
			&p.IsActive,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		if description != nil {
			p.Description = *description
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

// Update updates a pipeline's mutable fields.
func (r *PipelineRepo) Update(ctx context.Context, p *domain.Pipeline) error {
	query := `
		UPDATE pipelines
		SET name = $2, description = $3, is_active = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, p.ID, p.Name, nullString(p.Description), p.IsActive)
	if err != nil {
		return fmt.Errorf("update pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a pipeline (versions, runs and schedules go with it).
func (r *PipelineRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Versions ---

// CreateVersion stores a new config version with the next sequential
// number and returns it.
func (r *PipelineRepo) CreateVersion(ctx context.Context, pipelineID uuid.UUID, cfg *domain.PipelineConfig) (*domain.PipelineVersion, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	query := `
		INSERT INTO pipeline_versions (pipeline_id, version, config, created_at)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM pipeline_versions WHERE pipeline_id = $1),
			$2,
			NOW()
		)
		RETURNING pipeline_id, version, config, created_at
	`
	return r.scanVersion(r.pool.QueryRow(ctx, query, pipelineID, configJSON))
}

// GetVersion returns a specific config version.
func (r *PipelineRepo) GetVersion(ctx context.Context, pipelineID uuid.UUID, version int) (*domain.PipelineVersion, error) {
	query := `
		SELECT pipeline_id, version, config, created_at
		FROM pipeline_versions
		WHERE pipeline_id = $1 AND version = $2
	`
	return r.scanVersion(r.pool.QueryRow(ctx, query, pipelineID, version))
}

// GetLatestVersion returns the most recent config version.
func (r *PipelineRepo) GetLatestVersion(ctx context.Context, pipelineID uuid.UUID) (*domain.PipelineVersion, error) {
	query := `
		SELECT pipeline_id, version, config, created_at
		FROM pipeline_versions
		WHERE pipeline_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanVersion(r.pool.QueryRow(ctx, query, pipelineID))
}

// ListVersions returns all versions of a pipeline, newest first.
func (r *PipelineRepo) ListVersions(ctx context.Context, pipelineID uuid.UUID) ([]domain.PipelineVersion, error) {
	query := `
		SELECT pipeline_id, version, config, created_at
		FROM pipeline_versions
		WHERE pipeline_id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.PipelineVersion
	for rows.Next() {
		var v domain.PipelineVersion
		var configJSON []byte
		if err := rows.Scan(&v.PipelineID, &v.Version, &configJSON, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if err := json.Unmarshal(configJSON, &v.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Helpers ---

func (r *PipelineRepo) scanPipeline(row pgx.Row) (*domain.Pipeline, error) {
	var p domain.Pipeline
	var description *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&p.IsActive,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pipeline: %w", err)
	}
	if description != nil {
		p.Description = *description
	}
	return &p, nil
}

func (r *PipelineRepo) scanVersion(row pgx.Row) (*domain.PipelineVersion, error) {
	var v domain.PipelineVersion
	var configJSON []byte

	err := row.Scan(&v.PipelineID, &v.Version, &configJSON, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	if err := json.Unmarshal(configJSON, &v.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &v, nil
}
