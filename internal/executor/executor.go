package executor

import (
	"context"
	"errors"

	"github.com/rovesti/fabrica/internal/models"
)

// Executor errors.
var (
	// ErrExecutorNotFound — no executor registered for the step type.
	ErrExecutorNotFound = errors.New("executor not found for step type")

	// ErrInvalidParams — resolved params violate the model's contract.
	ErrInvalidParams = errors.New("invalid step params")

	// ErrProviderFailure — the provider reported a failure.
	ErrProviderFailure = errors.New("provider request failed")

	// ErrCancelled — execution was cancelled.
	ErrCancelled = errors.New("step execution cancelled")
)

// Executor performs one step type against a provider.
//
// Execute must honor ctx cancellation at I/O boundaries; the caller
// never force-kills an in-flight invocation.
type Executor interface {
	// Type returns the step type this executor serves.
	Type() string

	// Execute performs the step with fully resolved params.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request carries everything an executor needs for one invocation.
type Request struct {
	// StepName is the name of the step being executed.
	StepName string

	// Model is the resolved model descriptor.
	Model *models.Descriptor

	// Params are the step's params with all tokens interpolated.
	Params map[string]any

	// UpstreamOutput is the output of the input_from step, nil when
	// the step has no upstream.
	UpstreamOutput any
}

// Response is the outcome of a successful invocation.
type Response struct {
	// Output is the produced payload, passed downstream opaquely.
	Output any

	// Cost is the dollar cost the provider charged.
	Cost float64
}

// ParamString reads a string parameter.
func ParamString(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ParamInt reads a numeric parameter as int.
func ParamInt(params map[string]any, key string) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// ParamFloat reads a numeric parameter as float64.
func ParamFloat(params map[string]any, key string) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		}
	}
	return 0
}

// ParamBool reads a boolean parameter.
func ParamBool(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// ParamMap reads a nested mapping parameter.
func ParamMap(params map[string]any, key string) map[string]any {
	if v, ok := params[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
