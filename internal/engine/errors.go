package engine

import (
	"errors"
	"strings"
)

// Configuration errors. All of them are fatal: a malformed pipeline is
// rejected before any step executes.
var (
	// ErrInvalidConfig — the document could not be parsed at all.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrEmptyStepName — a step has no name.
	ErrEmptyStepName = errors.New("step has empty name")

	// ErrDuplicateStepName — two steps share a name.
	ErrDuplicateStepName = errors.New("duplicate step name")

	// ErrUnknownStepType — a step's type has no registered executor.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrUnknownReference — input_from targets a step that does not exist.
	ErrUnknownReference = errors.New("reference to unknown step")

	// ErrForwardReference — input_from targets a step declared later.
	ErrForwardReference = errors.New("reference to a later step")

	// ErrSelfDependency — a step depends on itself.
	ErrSelfDependency = errors.New("step depends on itself")

	// ErrCyclicDependency — the dependency graph contains a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrEmptyGroup — a parallel group has no child steps.
	ErrEmptyGroup = errors.New("parallel group has no steps")

	// ErrNestedGroup — a parallel group contains another group.
	ErrNestedGroup = errors.New("nested parallel groups are not supported")

	// ErrSiblingReference — a group child references a sibling in the
	// same group. Siblings run concurrently and must be independent.
	ErrSiblingReference = errors.New("group sibling references another sibling")
)

// Interpolation errors.
var (
	// ErrUnresolvedToken — a {{token}} has no value in scope.
	ErrUnresolvedToken = errors.New("unresolved interpolation token")

	// ErrUnresolvedField — a token's field projection found nothing.
	ErrUnresolvedField = errors.New("unresolved output field")

	// ErrNonScalarToken — a token embedded in a larger string resolved
	// to a structured value that cannot be spliced in as text.
	ErrNonScalarToken = errors.New("token resolves to a non-scalar value")
)

// ConfigError is a configuration error with step context.
type ConfigError struct {
	StepName string // step where the error occurred, empty for pipeline-level errors
	Field    string // offending field
	Message  string // human-readable description
	Err      error  // sentinel
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.StepName != "" {
		return "step " + e.StepName + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying sentinel.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error.
func NewConfigError(stepName, field, message string, err error) *ConfigError {
	return &ConfigError{
		StepName: stepName,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}

// CycleError reports a dependency cycle. Steps lists every member of
// the cycle in traversal order.
type CycleError struct {
	Steps []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "cyclic dependency detected: " + strings.Join(e.Steps, " -> ")
}

// Unwrap makes the error match ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// InterpolationError reports a token that could not be resolved for a
// step's parameters.
type InterpolationError struct {
	StepName string // step whose params were being interpolated
	Token    string // token as written, e.g. "{{img.url}}"
	Err      error  // sentinel
}

// Error implements the error interface.
func (e *InterpolationError) Error() string {
	return "step " + e.StepName + ": " + e.Err.Error() + ": " + e.Token
}

// Unwrap returns the underlying sentinel.
func (e *InterpolationError) Unwrap() error {
	return e.Err
}
