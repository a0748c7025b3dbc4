package runner

import "errors"

var (
	// ErrCostLimitExceeded — the dry-run estimate exceeds the config's
	// cost ceiling; the run is refused before any step executes.
	ErrCostLimitExceeded = errors.New("estimated cost exceeds cost limit")

	// ErrUpstreamUnavailable — a step's input_from produced no output,
	// typically because the upstream step failed under the continue
	// policy.
	ErrUpstreamUnavailable = errors.New("upstream step did not produce output")

	// ErrRunAlreadyActive — the service is already executing the run.
	ErrRunAlreadyActive = errors.New("run is already active")

	// ErrRunNotPending — the run is not in PENDING status.
	ErrRunNotPending = errors.New("run is not in PENDING status")
)
