package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
)

// ListPipelines returns all pipelines.
// GET /api/v1/pipelines
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.pipelines.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]PipelineResponse, len(pipelines))
	for i, p := range pipelines {
		result[i] = PipelineFromDomain(p)
	}

	List(w, result, len(result))
}

// CreatePipeline creates a new pipeline.
// POST /api/v1/pipelines
func (h *Handler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req CreatePipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	pipeline := &domain.Pipeline{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    false,
	}

	if err := h.pipelines.Create(r.Context(), pipeline); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, PipelineFromDomain(*pipeline))
}

// GetPipeline returns a pipeline by ID.
// GET /api/v1/pipelines/{id}
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	pipeline, err := h.pipelines.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	Success(w, PipelineFromDomain(*pipeline))
}

// UpdatePipeline updates a pipeline.
// PUT /api/v1/pipelines/{id}
func (h *Handler) UpdatePipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	var req UpdatePipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	pipeline, err := h.pipelines.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	if req.Name != nil {
		pipeline.Name = *req.Name
	}
	if req.Description != nil {
		pipeline.Description = *req.Description
	}
	if req.IsActive != nil {
		pipeline.IsActive = *req.IsActive
	}

	if err := h.pipelines.Update(r.Context(), pipeline); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, PipelineFromDomain(*pipeline))
}

// DeletePipeline deletes a pipeline.
// DELETE /api/v1/pipelines/{id}
func (h *Handler) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	if err := h.pipelines.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "pipeline not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// ListPipelineVersions returns all config versions of a pipeline.
// GET /api/v1/pipelines/{id}/versions
func (h *Handler) ListPipelineVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	_, err = h.pipelines.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	versions, err := h.pipelines.ListVersions(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]VersionResponse, len(versions))
	for i, v := range versions {
		result[i] = VersionFromDomain(v)
	}

	List(w, result, len(result))
}

// CreatePipelineVersion validates a config and stores it as a new
// version.
// POST /api/v1/pipelines/{id}/versions
func (h *Handler) CreatePipelineVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	_, err = h.pipelines.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	// Broken configs are rejected at write time, not at run time.
	if err := engine.Validate(&req.Config, h.stepTypes()); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if _, err := engine.Resolve(&req.Config); err != nil {
		BadRequest(w, err.Error())
		return
	}

	version, err := h.pipelines.CreateVersion(r.Context(), id, &req.Config)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, VersionFromDomain(*version))
}

// GetPipelineVersion returns one config version.
// GET /api/v1/pipelines/{id}/versions/{version}
func (h *Handler) GetPipelineVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	version, err := h.pipelines.GetVersion(r.Context(), id, versionNum)
	if HandleRepoError(w, h.logger, err, "pipeline version not found") {
		return
	}

	Success(w, VersionFromDomain(*version))
}

// stepTypes returns the set of valid step types: one per model
// category plus parallel_group.
func (h *Handler) stepTypes() map[string]bool {
	set := make(map[string]bool)
	for _, t := range domain.GenerationStepTypes() {
		set[t] = true
	}
	set[domain.StepParallelGroup] = true
	return set
}
