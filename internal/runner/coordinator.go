package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
	"github.com/rovesti/fabrica/internal/executor"
	"github.com/rovesti/fabrica/internal/models"
	"github.com/rovesti/fabrica/internal/telemetry"
)

// defaultMaxFanOut caps a parallel group's worker pool regardless of
// settings, to keep fan-out against rate-limited providers bounded.
const defaultMaxFanOut = 8

// Coordinator executes pipeline configs.
//
// One Coordinator is shared by all runs; per-run state lives in a
// runState created inside Execute. The coordinator is the single
// writer of each run's scope.
type Coordinator struct {
	executors *executor.Registry
	models    *models.Registry
	maxFanOut int
	logger    *slog.Logger
}

// Config configures a Coordinator.
type Config struct {
	// Executors is the step executor registry.
	Executors *executor.Registry

	// Models is the model registry.
	Models *models.Registry

	// MaxFanOut caps the worker pool of one parallel group
	// (default: 8).
	MaxFanOut int

	// Logger (default: slog.Default).
	Logger *slog.Logger
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	maxFanOut := cfg.MaxFanOut
	if maxFanOut <= 0 {
		maxFanOut = defaultMaxFanOut
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		executors: cfg.Executors,
		models:    cfg.Models,
		maxFanOut: maxFanOut,
		logger:    logger,
	}
}

// runState is the mutable state of one run in flight.
type runState struct {
	cfg         *domain.PipelineConfig
	scope       *engine.Scope
	descriptors map[string]*models.Descriptor // step name -> resolved model
	results     []domain.StepResult
}

// Execute runs one pipeline config to completion.
//
// input overrides the config's default input when non-empty.
//
// Configuration errors (invalid structure, cycle, dangling reference,
// unknown model, cost ceiling) are returned as an error with no
// report: nothing was dispatched. Once execution starts, failures are
// captured inside the report and Execute returns it with a nil error;
// the report's Status and Success carry the outcome.
func (c *Coordinator) Execute(ctx context.Context, cfg *domain.PipelineConfig, input string) (*domain.RunReport, error) {
	if err := engine.Validate(cfg, c.executors.StepTypeSet()); err != nil {
		return nil, err
	}

	graph, err := engine.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	descriptors, err := c.resolveModels(graph)
	if err != nil {
		return nil, err
	}

	if limit := cfg.Settings.CostLimit; limit > 0 {
		est, err := c.Estimate(cfg)
		if err != nil {
			return nil, err
		}
		if est.Total > limit {
			return nil, fmt.Errorf("%w: estimated %.4f, limit %.4f", ErrCostLimitExceeded, est.Total, limit)
		}
	}

	if input == "" {
		input = cfg.Input
	}

	st := &runState{
		cfg:         cfg,
		scope:       engine.NewScope(input),
		descriptors: descriptors,
		results:     make([]domain.StepResult, 0, graph.Size()),
	}

	started := time.Now()
	c.logger.Info("run started",
		"pipeline", cfg.Name,
		"steps", graph.Size(),
		"failure_policy", c.failurePolicy(cfg),
	)

	status := c.walkSchedule(ctx, graph, st)

	report := c.buildReport(cfg, st, status, time.Since(started))
	c.logger.Info("run finished",
		"pipeline", cfg.Name,
		"status", report.Status,
		"success", report.Success,
		"steps", len(report.Results),
		"total_cost", report.TotalCost,
	)
	return report, nil
}

// walkSchedule drives the schedule and returns the final status.
func (c *Coordinator) walkSchedule(ctx context.Context, graph *engine.ExecutionGraph, st *runState) domain.RunStatus {
	failFast := c.failurePolicy(st.cfg) == domain.FailFast
	failed := false

	for _, unit := range graph.Schedule {
		// Cancellation is checked between units only; in-flight work
		// finishes cooperatively.
		if ctx.Err() != nil {
			return domain.RunStatusCancelled
		}

		if unit.Concurrent {
			results := c.runGroup(ctx, unit.Node, st)
			st.results = append(st.results, results...)
			for i := range results {
				if !results[i].Success {
					failed = true
				}
			}
		} else {
			result := c.dispatchStep(ctx, unit.Node, st)
			st.results = append(st.results, result)
			if result.Success {
				st.scope.Set(result.StepName, result.Output)
			} else {
				failed = true
			}
		}

		if failed && failFast {
			return domain.RunStatusFailed
		}
	}

	if ctx.Err() != nil {
		return domain.RunStatusCancelled
	}
	return domain.RunStatusCompleted
}

// resolveModels resolves every step's model up front. An unknown model
// is a configuration error: the run is refused before anything runs.
func (c *Coordinator) resolveModels(graph *engine.ExecutionGraph) (map[string]*models.Descriptor, error) {
	descriptors := make(map[string]*models.Descriptor)

	for _, unit := range graph.Schedule {
		for _, node := range stepsOf(unit.Node) {
			d, err := c.models.Resolve(node.Spec.Type, node.Spec.Model)
			if err != nil {
				return nil, fmt.Errorf("step %s: %w", node.Name, err)
			}
			descriptors[node.Name] = d
		}
	}
	return descriptors, nil
}

// stepsOf returns the dispatchable steps of one schedule unit: the
// node itself, or a group's children.
func stepsOf(node *engine.Node) []*engine.Node {
	if node.IsGroup {
		return node.Children
	}
	return []*engine.Node{node}
}

func (c *Coordinator) failurePolicy(cfg *domain.PipelineConfig) domain.FailurePolicy {
	if cfg.Settings.FailurePolicy == domain.FailFast {
		return domain.FailFast
	}
	return domain.FailContinue
}

// buildReport assembles the final report from the run state.
func (c *Coordinator) buildReport(cfg *domain.PipelineConfig, st *runState, status domain.RunStatus, duration time.Duration) *domain.RunReport {
	report := &domain.RunReport{
		PipelineName: cfg.Name,
		Status:       status,
		Success:      status == domain.RunStatusCompleted,
		Results:      st.results,
		Duration:     duration,
	}

	for i := range st.results {
		res := &st.results[i]
		telemetry.ObserveStep(res.StepType, res.Success, res.Duration)
		report.TotalCost += res.Cost
		if !res.Success {
			report.Success = false
			if report.Error == "" {
				report.Error = fmt.Sprintf("step %s: %s", res.StepName, res.Error)
			}
		}
	}
	return report
}
