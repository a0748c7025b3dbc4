package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/mq"
	"github.com/rovesti/fabrica/internal/repo"
	"github.com/rovesti/fabrica/internal/telemetry"
)

// Default service configuration.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// Service is the daemon side of the runner.
//
// It picks up submitted runs from RabbitMQ (with a DB polling fallback
// for runs created while the broker or the runner was down), executes
// them through the Coordinator, persists the outcome and publishes a
// completion event. A runs.cancelled event cancels the per-run context
// of an in-flight run.
type Service struct {
	runs      *repo.RunRepo
	pipelines *repo.PipelineRepo
	results   *repo.ResultRepo

	publisher   *mq.Publisher
	conn        *mq.Connection
	coordinator *Coordinator

	// Active runs, keyed by run ID. Cancelling the context aborts
	// the run between schedule units.
	active map[uuid.UUID]context.CancelFunc
	mu     sync.Mutex

	submitConsumer *mq.Consumer
	cancelConsumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Runs      *repo.RunRepo
	Pipelines *repo.PipelineRepo
	Results   *repo.ResultRepo

	// Publisher and Conn may be nil; the service then works in
	// poll-only mode.
	Publisher *mq.Publisher
	Conn      *mq.Connection

	Coordinator *Coordinator

	PollInterval time.Duration // default: 10s
	BatchSize    int           // runs per poll, default: 100

	Logger *slog.Logger
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		runs:         cfg.Runs,
		pipelines:    cfg.Pipelines,
		results:      cfg.Results,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		coordinator:  cfg.Coordinator,
		active:       make(map[uuid.UUID]context.CancelFunc),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start launches the consumers and the polling goroutine.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting runner service",
		"poll_interval", s.pollInterval,
		"batch_size", s.batchSize,
		"broker", s.conn != nil,
	)

	if s.conn != nil {
		s.submitConsumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsSubmitted),
			Handler:  s.handleRunSubmitted,
			Prefetch: 10,
		})
		s.cancelConsumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsCancelled),
			Handler:  s.handleRunCancelled,
			Prefetch: 10,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.submitConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("submit consumer error", "error", err)
			}
		}()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.cancelConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("cancel consumer error", "error", err)
			}
		}()
	} else {
		s.logger.Warn("broker not configured, running in poll-only mode")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(ctx)
	}()

	s.logger.Info("runner service started")
	return nil
}

// Stop cancels in-flight runs and waits for goroutines to finish.
func (s *Service) Stop() {
	s.logger.Info("stopping runner service...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.submitConsumer != nil {
		s.submitConsumer.Stop()
	}
	if s.cancelConsumer != nil {
		s.cancelConsumer.Stop()
	}

	s.wg.Wait()
	s.logger.Info("runner service stopped")
}

// ActiveRunsCount returns the number of runs currently executing.
func (s *Service) ActiveRunsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// --- Event handlers ---

func (s *Service) handleRunSubmitted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunSubmittedPayload](&delivery.Message)
	if err != nil {
		s.logger.Error("failed to parse run.submitted payload", "error", err)
		return err
	}

	s.logger.Debug("received run.submitted event", "run_id", payload.RunID)

	if err := s.executeRun(ctx, payload.RunID); err != nil {
		if errors.Is(err, ErrRunAlreadyActive) || errors.Is(err, ErrRunNotPending) {
			s.logger.Debug("run not executed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		s.logger.Error("failed to execute run", "run_id", payload.RunID, "error", err)
		return err
	}
	return nil
}

func (s *Service) handleRunCancelled(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunCancelledPayload](&delivery.Message)
	if err != nil {
		s.logger.Error("failed to parse run.cancelled payload", "error", err)
		return err
	}

	s.logger.Debug("received run.cancelled event", "run_id", payload.RunID)
	return s.cancelRun(ctx, payload.RunID)
}

// cancelRun aborts an in-flight run or marks a still-pending one
// CANCELLED directly.
func (s *Service) cancelRun(ctx context.Context, runID uuid.UUID) error {
	s.mu.Lock()
	cancel, active := s.active[runID]
	s.mu.Unlock()

	if active {
		cancel()
		s.logger.Info("cancelling active run", "run_id", runID)
		return nil
	}

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Debug("cancel for unknown run", "run_id", runID)
			return nil
		}
		return fmt.Errorf("get run: %w", err)
	}
	if run.Status != domain.RunStatusPending {
		return nil
	}

	run.MarkCancelled()
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("mark run cancelled: %w", err)
	}
	telemetry.ObserveRun(string(run.Status), 0)
	s.logger.Info("pending run cancelled", "run_id", runID)
	return nil
}

// --- Execution ---

// executeRun runs one submitted run end to end.
func (s *Service) executeRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("submitted run not found", "run_id", runID)
			return nil
		}
		return fmt.Errorf("get run: %w", err)
	}

	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	version, err := s.pipelines.GetVersion(ctx, run.PipelineID, run.Version)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return s.failRun(ctx, run, fmt.Sprintf("pipeline version not found: %s v%d", run.PipelineID, run.Version))
		}
		return fmt.Errorf("get pipeline version: %w", err)
	}

	runCtx, cancel, err := s.addActive(ctx, runID)
	if err != nil {
		return err
	}
	defer func() {
		cancel()
		s.removeActive(runID)
	}()

	run.MarkRunning()
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	telemetry.ActiveRuns.Inc()
	defer telemetry.ActiveRuns.Dec()

	s.logger.Info("run started",
		"run_id", runID,
		"pipeline_id", run.PipelineID,
		"version", run.Version,
	)

	report, err := s.coordinator.Execute(runCtx, &version.Config, run.Input)
	if err != nil {
		// Config errors surface before any step executes.
		return s.failRun(ctx, run, err.Error())
	}

	stampRunID(report, run.ID)
	if err := s.results.CreateBatch(ctx, report.Results); err != nil {
		s.logger.Error("failed to persist step results", "run_id", runID, "error", err)
	}

	switch report.Status {
	case domain.RunStatusCancelled:
		run.MarkCancelled()
		run.TotalCost = report.TotalCost
	case domain.RunStatusFailed:
		run.MarkFailed(report.Error)
		run.TotalCost = report.TotalCost
	default:
		run.MarkCompleted(report.TotalCost)
		run.Error = report.Error
	}

	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	telemetry.ObserveRun(string(run.Status), run.TotalCost)
	s.publishCompleted(ctx, run, report.Success)

	s.logger.Info("run finished",
		"run_id", runID,
		"status", run.Status,
		"success", report.Success,
		"total_cost", run.TotalCost,
		"duration", report.Duration,
	)
	return nil
}

// stampRunID binds a report to its run: the coordinator produces
// results without knowing the run, so the run ID and the ordering
// sequence are assigned here, before anything is persisted.
func stampRunID(report *domain.RunReport, runID uuid.UUID) {
	report.RunID = runID
	for i := range report.Results {
		report.Results[i].RunID = runID
		report.Results[i].Seq = i
	}
}

// failRun marks a run FAILED without executing any steps.
func (s *Service) failRun(ctx context.Context, run *domain.Run, reason string) error {
	run.MarkFailed(reason)
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}

	telemetry.ObserveRun(string(run.Status), 0)
	s.publishCompleted(ctx, run, false)

	s.logger.Warn("run failed before execution", "run_id", run.ID, "reason", reason)
	return nil
}

func (s *Service) publishCompleted(ctx context.Context, run *domain.Run, success bool) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishRunCompleted(ctx, mq.RunCompletedPayload{
		RunID:     run.ID,
		Status:    run.Status,
		Success:   success,
		TotalCost: run.TotalCost,
		Error:     run.Error,
	})
	if err != nil {
		s.logger.Error("failed to publish run.completed", "run_id", run.ID, "error", err)
	}
}

// --- Polling fallback ---

func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// First poll right away to pick up runs created while we were down.
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	runs, err := s.runs.ListPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list pending runs", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	s.logger.Debug("poll found pending runs", "count", len(runs))

	for i := range runs {
		if ctx.Err() != nil {
			return
		}
		if err := s.executeRun(ctx, runs[i].ID); err != nil &&
			!errors.Is(err, ErrRunAlreadyActive) && !errors.Is(err, ErrRunNotPending) {
			s.logger.Error("failed to execute run from poll",
				"run_id", runs[i].ID,
				"error", err,
			)
		}
	}
}

// --- Active run tracking ---

func (s *Service) addActive(ctx context.Context, runID uuid.UUID) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[runID]; exists {
		return nil, nil, ErrRunAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.active[runID] = cancel
	return runCtx, cancel, nil
}

func (s *Service) removeActive(runID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, runID)
}
