package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (mirrors of api/dto.go; the CLI does not import internal/api) ---

// PipelineResponse is a pipeline from the API.
type PipelineResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

// VersionResponse is a pipeline config version from the API.
type VersionResponse struct {
	PipelineID string         `json:"pipeline_id"`
	Version    int            `json:"version"`
	Config     map[string]any `json:"config"`
	CreatedAt  string         `json:"created_at"`
}

// RunResponse is a run from the API.
type RunResponse struct {
	ID             string  `json:"id"`
	PipelineID     string  `json:"pipeline_id"`
	Version        int     `json:"version"`
	Status         string  `json:"status"`
	Input          string  `json:"input,omitempty"`
	TotalCost      float64 `json:"total_cost"`
	Error          string  `json:"error,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
	StartedAt      string  `json:"started_at,omitempty"`
	FinishedAt     string  `json:"finished_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// StepResultResponse is a per-step result from the API.
type StepResultResponse struct {
	ID         string  `json:"id"`
	StepName   string  `json:"step_name"`
	StepType   string  `json:"step_type"`
	Model      string  `json:"model,omitempty"`
	Success    bool    `json:"success"`
	Output     any     `json:"output,omitempty"`
	Cost       float64 `json:"cost"`
	DurationMS int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// ScheduleResponse is a schedule from the API.
type ScheduleResponse struct {
	ID          string `json:"id"`
	PipelineID  string `json:"pipeline_id"`
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone"`
	Enabled     bool   `json:"enabled"`
	Input       string `json:"input,omitempty"`
	NextDueAt   string `json:"next_due_at,omitempty"`
	LastRunAt   string `json:"last_run_at,omitempty"`
	LastRunID   string `json:"last_run_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ModelResponse is a model catalog entry from the API.
type ModelResponse struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Provider       string   `json:"provider"`
	RequiredParams []string `json:"required_params,omitempty"`
	OptionalParams []string `json:"optional_params,omitempty"`
	Default        bool     `json:"default"`
}

// EstimateResponse is a cost estimate from the API.
type EstimateResponse struct {
	Total     float64 `json:"total"`
	Breakdown []struct {
		StepName string  `json:"step_name"`
		StepType string  `json:"step_type"`
		Model    string  `json:"model"`
		Cost     float64 `json:"cost"`
	} `json:"breakdown,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// --- Request types ---

// CreatePipelineRequest creates a pipeline.
type CreatePipelineRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdatePipelineRequest updates a pipeline.
type UpdatePipelineRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// CreateRunRequest submits a run.
type CreateRunRequest struct {
	Input          string `json:"input,omitempty"`
	Version        *int   `json:"version,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateScheduleRequest creates a schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
	Input       string `json:"input,omitempty"`
}

// UpdateScheduleRequest updates a schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
	Input       *string `json:"input,omitempty"`
}

// ListRunsOpts filters ListRuns.
type ListRunsOpts struct {
	PipelineID string
	Status     string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client is the HTTP client for the Fabrica API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Pipelines ---

// ListPipelines returns all pipelines.
func (c *Client) ListPipelines() ([]PipelineResponse, error) {
	var pipelines []PipelineResponse
	err := c.list("/api/v1/pipelines", nil, &pipelines)
	return pipelines, err
}

// CreatePipeline creates a pipeline.
func (c *Client) CreatePipeline(req CreatePipelineRequest) (*PipelineResponse, error) {
	var pipeline PipelineResponse
	err := c.post("/api/v1/pipelines", req, &pipeline)
	return &pipeline, err
}

// GetPipeline returns a pipeline by ID.
func (c *Client) GetPipeline(id string) (*PipelineResponse, error) {
	var pipeline PipelineResponse
	err := c.get("/api/v1/pipelines/"+id, &pipeline)
	return &pipeline, err
}

// UpdatePipeline updates a pipeline.
func (c *Client) UpdatePipeline(id string, req UpdatePipelineRequest) (*PipelineResponse, error) {
	var pipeline PipelineResponse
	err := c.put("/api/v1/pipelines/"+id, req, &pipeline)
	return &pipeline, err
}

// DeletePipeline deletes a pipeline.
func (c *Client) DeletePipeline(id string) error {
	return c.delete("/api/v1/pipelines/" + id)
}

// ListVersions returns all config versions of a pipeline.
func (c *Client) ListVersions(pipelineID string) ([]VersionResponse, error) {
	var versions []VersionResponse
	err := c.list("/api/v1/pipelines/"+pipelineID+"/versions", nil, &versions)
	return versions, err
}

// CreateVersion publishes a new config version.
func (c *Client) CreateVersion(pipelineID string, config json.RawMessage) (*VersionResponse, error) {
	body := map[string]json.RawMessage{"config": config}
	var version VersionResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/versions", body, &version)
	return &version, err
}

// --- Runs ---

// ListRuns returns runs with filtering.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.PipelineID != "" {
		params.Set("pipeline_id", opts.PipelineID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun submits a run for a pipeline.
func (c *Client) CreateRun(pipelineID string, req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/runs", req, &run)
	return &run, err
}

// GetRun returns a run by ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// CancelRun cancels a run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// ListResults returns step results of a run.
func (c *Client) ListResults(runID string) ([]StepResultResponse, error) {
	var results []StepResultResponse
	err := c.list("/api/v1/runs/"+runID+"/results", nil, &results)
	return results, err
}

// --- Schedules ---

// ListSchedules returns schedules, filtered by pipeline if non-empty.
func (c *Client) ListSchedules(pipelineID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if pipelineID != "" {
		params.Set("pipeline_id", pipelineID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule creates a schedule for a pipeline.
func (c *Client) CreateSchedule(pipelineID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/pipelines/"+pipelineID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule returns a schedule by ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule updates a schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule deletes a schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule turns a schedule on.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule turns a schedule off.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- Models ---

// ListModels returns the model catalog.
func (c *Client) ListModels(category string) ([]ModelResponse, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}

	var models []ModelResponse
	err := c.list("/api/v1/models", params, &models)
	return models, err
}

// Estimate prices a config server-side.
func (c *Client) Estimate(config json.RawMessage) (*EstimateResponse, error) {
	body := map[string]json.RawMessage{"config": config}
	var estimate EstimateResponse
	err := c.post("/api/v1/estimate", body, &estimate)
	return &estimate, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if lr.Data == nil {
		return nil
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
