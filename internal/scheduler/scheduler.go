package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/mq"
	"github.com/rovesti/fabrica/internal/repo"
)

// Scheduler turns due schedules into PENDING runs.
type Scheduler struct {
	schedules *repo.ScheduleRepo
	runs      *repo.RunRepo
	pipelines *repo.PipelineRepo
	publisher *mq.Publisher
	logger    *slog.Logger
	batchSize int
}

// Config configures a Scheduler.
type Config struct {
	Schedules *repo.ScheduleRepo
	Runs      *repo.RunRepo
	Pipelines *repo.PipelineRepo
	Publisher *mq.Publisher
	Logger    *slog.Logger
	BatchSize int // schedules per tick (default: 100)
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		runs:      cfg.Runs,
		pipelines: cfg.Pipelines,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick performs one scheduler pass.
//
// It finds due schedules, submits a run for each and advances
// next_due_at. Errors on one schedule do not block the others.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		runCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if runCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"runs_created", created,
	)
	return nil
}

// processSchedule submits a run for one due schedule. Returns true
// when a run was actually created (not an idempotency duplicate).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	pipeline, err := s.pipelines.GetByID(ctx, sched.PipelineID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("pipeline not found for schedule, skipping",
				"schedule_id", sched.ID,
				"pipeline_id", sched.PipelineID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get pipeline: %w", err)
	}

	// Inactive pipelines stay on schedule but do not fire.
	if !pipeline.IsActive {
		nextDue, err := CalculateNextDue(sched, now)
		if err != nil {
			return false, nil
		}
		sched.NextDueAt = &nextDue
		sched.UpdatedAt = now
		if err := s.schedules.Update(ctx, sched); err != nil {
			return false, fmt.Errorf("update schedule: %w", err)
		}
		s.logger.Debug("pipeline inactive, run skipped",
			"schedule_id", sched.ID,
			"pipeline_id", sched.PipelineID,
		)
		return false, nil
	}

	version, err := s.pipelines.GetLatestVersion(ctx, sched.PipelineID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("pipeline has no versions, skipping",
				"schedule_id", sched.ID,
				"pipeline_id", sched.PipelineID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get latest version: %w", err)
	}

	// One run per schedule per fire time, even if two scheduler
	// instances race or a tick repeats after a crash.
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	existing, err := s.runs.GetByIdempotencyKey(ctx, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var runCreated bool
	var runID uuid.UUID

	if existing != nil {
		s.logger.Debug("run already exists for fire time",
			"schedule_id", sched.ID,
			"run_id", existing.ID,
			"idempotency_key", idempKey,
		)
		runID = existing.ID
	} else {
		run := &domain.Run{
			ID:             uuid.New(),
			PipelineID:     sched.PipelineID,
			Version:        version.Version,
			Status:         domain.RunStatusPending,
			Input:          sched.Input,
			IdempotencyKey: idempKey,
			CreatedAt:      now,
		}

		if err := s.runs.Create(ctx, run); err != nil {
			return false, fmt.Errorf("create run: %w", err)
		}

		s.logger.Info("created run from schedule",
			"run_id", run.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"pipeline_id", sched.PipelineID,
			"version", version.Version,
		)

		runID = run.ID
		runCreated = true
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Broken expression, leave next_due_at alone rather than
		// firing in a loop.
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		return runCreated, nil
	}

	sched.RecordRun(runID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return runCreated, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && runCreated {
		if err := s.publisher.PublishRunSubmitted(ctx, runID); err != nil {
			// The run is already in the DB; the runner's poll
			// fallback will pick it up.
			s.logger.Warn("failed to publish run.submitted",
				"run_id", runID,
				"error", err,
			)
		}
	}

	return runCreated, nil
}
