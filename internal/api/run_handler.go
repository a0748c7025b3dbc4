package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/repo"
)

// ListRuns returns runs with filtering.
// GET /api/v1/runs?pipeline_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if pipelineIDStr := r.URL.Query().Get("pipeline_id"); pipelineIDStr != "" {
		pipelineID, err := uuid.Parse(pipelineIDStr)
		if err != nil {
			BadRequest(w, "invalid pipeline_id")
			return
		}
		filter.PipelineID = &pipelineID
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun submits a new run for a pipeline.
// POST /api/v1/pipelines/{id}/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	pipelineID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	pipeline, err := h.pipelines.GetByID(r.Context(), pipelineID)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	var version int
	if req.Version != nil {
		version = *req.Version
		_, err := h.pipelines.GetVersion(r.Context(), pipelineID, version)
		if HandleRepoError(w, h.logger, err, "pipeline version not found") {
			return
		}
	} else {
		latest, err := h.pipelines.GetLatestVersion(r.Context(), pipelineID)
		if HandleRepoError(w, h.logger, err, "pipeline has no versions") {
			return
		}
		version = latest.Version
	}

	if req.IdempotencyKey != "" {
		existing, err := h.runs.GetByIdempotencyKey(r.Context(), req.IdempotencyKey)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
		if existing != nil {
			Success(w, RunFromDomain(*existing))
			return
		}
	}

	run := &domain.Run{
		ID:             uuid.New(),
		PipelineID:     pipeline.ID,
		Version:        version,
		Status:         domain.RunStatusPending,
		Input:          req.Input,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := h.runs.Create(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishRunSubmitted(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.submitted", "run_id", run.ID, "error", err)
		}
	}

	Created(w, RunFromDomain(*run))
}

// GetRun returns a run by ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// CancelRun cancels a run.
//
// A PENDING run is cancelled directly; a RUNNING run gets a
// runs.cancelled event so the runner aborts it between steps.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	if run.IsFinished() {
		InvalidState(w, "run is already finished")
		return
	}

	if run.Status == domain.RunStatusPending {
		run.MarkCancelled()
		if err := h.runs.Update(r.Context(), run); err != nil {
			InternalError(w, h.logger, err)
			return
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishRunCancelled(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.cancelled", "run_id", run.ID, "error", err)
		}
	} else if run.Status == domain.RunStatusRunning {
		InvalidState(w, "cannot cancel a running run without a broker")
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunResults returns the per-step results of a run.
// GET /api/v1/runs/{id}/results
func (h *Handler) ListRunResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	_, err = h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	results, err := h.results.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	out := make([]StepResultResponse, len(results))
	for i, res := range results {
		out[i] = StepResultFromDomain(res)
	}

	List(w, out, len(out))
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
