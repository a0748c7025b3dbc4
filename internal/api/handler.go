package api

import (
	"log/slog"

	"github.com/rovesti/fabrica/internal/models"
	"github.com/rovesti/fabrica/internal/mq"
	"github.com/rovesti/fabrica/internal/repo"
	"github.com/rovesti/fabrica/internal/runner"
)

// Handler is the API handler with its dependencies.
type Handler struct {
	pipelines   *repo.PipelineRepo
	runs        *repo.RunRepo
	results     *repo.ResultRepo
	schedules   *repo.ScheduleRepo
	publisher   *mq.Publisher
	models      *models.Registry
	coordinator *runner.Coordinator
	logger      *slog.Logger
}

// Config configures a Handler.
type Config struct {
	Pipelines *repo.PipelineRepo
	Runs      *repo.RunRepo
	Results   *repo.ResultRepo
	Schedules *repo.ScheduleRepo

	// Publisher may be nil; submitted runs are then picked up by the
	// runner's polling fallback.
	Publisher *mq.Publisher

	Models *models.Registry

	// Coordinator serves validation and cost estimates. It never
	// executes steps on the API side.
	Coordinator *runner.Coordinator

	Logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		pipelines:   cfg.Pipelines,
		runs:        cfg.Runs,
		results:     cfg.Results,
		schedules:   cfg.Schedules,
		publisher:   cfg.Publisher,
		models:      cfg.Models,
		coordinator: cfg.Coordinator,
		logger:      cfg.Logger,
	}
}
