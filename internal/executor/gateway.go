package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGatewayTimeout = 5 * time.Minute
	defaultMaxAttempts    = 3
	defaultRetryDelay     = time.Second
	maxRetryDelay         = 30 * time.Second
	maxResponseBody       = 10 * 1024 * 1024 // 10 MB
)

// GatewayConfig configures provider gateway executors.
type GatewayConfig struct {
	// BaseURL is the generation gateway endpoint, e.g.
	// "https://gateway.internal/v1".
	BaseURL string

	// APIKey authenticates against the gateway.
	APIKey string

	// Timeout bounds one invocation attempt. Generation jobs are
	// slow; defaults to 5 minutes when zero.
	Timeout time.Duration

	// MaxAttempts bounds invocations per step, the first attempt
	// included (default: 3). Only transient failures are retried:
	// network errors, HTTP 429 and 5xx.
	MaxAttempts int

	// RetryDelay is the delay before the first retry, doubled per
	// attempt and capped at 30s (default: 1s).
	RetryDelay time.Duration
}

// Gateway invokes generation models through an HTTP gateway that
// fronts the actual providers.
//
// One Gateway instance serves one step type. The request is
//
//	POST {base}/generate/{step_type}
//	{"model": "...", "step": "...", "params": {...}, "upstream": ...}
//
// and the gateway answers with
//
//	{"output": ..., "cost": 0.65}
//
// or a non-2xx status with {"error": "..."}.
type Gateway struct {
	stepType    string
	cfg         GatewayConfig
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// NewGateway creates a gateway executor for one step type.
func NewGateway(stepType string, cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultGatewayTimeout
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Gateway{
		stepType:    stepType,
		cfg:         cfg,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Type returns the step type this gateway serves.
func (g *Gateway) Type() string {
	return g.stepType
}

// Execute performs one generation request with bounded retry.
// Transient provider failures are retried in-process with exponential
// backoff; invalid params, 4xx responses and malformed bodies are not.
func (g *Gateway) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == nil {
		return nil, fmt.Errorf("%w: no model resolved for step %s", ErrInvalidParams, req.StepName)
	}
	if err := req.Model.ValidateParams(req.Params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		resp, retryable, err := g.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable || attempt >= g.maxAttempts {
			return nil, lastErr
		}

		select {
		case <-time.After(backoffDelay(g.retryDelay, attempt)):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}
}

// attempt performs a single gateway round trip. The second return
// value reports whether the failure is transient.
func (g *Gateway) attempt(ctx context.Context, req *Request) (*Response, bool, error) {
	httpReq, err := g.buildRequest(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return nil, true, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	parsed, err := g.parseResponse(resp, req)
	if err != nil {
		return nil, retryableStatus(resp.StatusCode), err
	}
	return parsed, false, nil
}

// retryableStatus reports whether a provider status is transient.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// backoffDelay doubles the initial delay per completed attempt,
// capped at maxRetryDelay.
func backoffDelay(initial time.Duration, attempt int) time.Duration {
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// gatewayRequest is the wire shape sent to the gateway.
type gatewayRequest struct {
	Model    string         `json:"model"`
	Step     string         `json:"step"`
	Params   map[string]any `json:"params"`
	Upstream any            `json:"upstream,omitempty"`
}

// gatewayResponse is the wire shape the gateway answers with.
type gatewayResponse struct {
	Output any     `json:"output"`
	Cost   float64 `json:"cost"`
	Error  string  `json:"error,omitempty"`
}

func (g *Gateway) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	payload := gatewayRequest{
		Model:    req.Model.ID,
		Step:     req.StepName,
		Params:   req.Params,
		Upstream: req.UpstreamOutput,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/generate/" + g.stepType
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}
	return httpReq, nil
}

func (g *Gateway) parseResponse(resp *http.Response, req *Request) (*Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response (HTTP %d)", ErrProviderFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderFailure, msg)
	}

	cost := parsed.Cost
	if cost == 0 {
		// Some providers bill asynchronously and omit cost; fall back
		// to the catalog estimate so aggregation stays meaningful.
		cost = req.Model.Cost(req.Params)
	}

	return &Response{Output: parsed.Output, Cost: cost}, nil
}
