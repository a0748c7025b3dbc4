package domain

// RunStatus is the run state machine.
//
// Lifecycle:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          (or)   → CANCELLED (from PENDING or RUNNING)
type RunStatus string

const (
	// RunStatusPending means the run is created but not started.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning means the coordinator is walking the schedule.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted means the schedule finished. Individual steps
	// may still have failed under the "continue" failure policy; check
	// the report's Success flag.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed means a fatal configuration error occurred or a
	// step failed under the fail-fast policy.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled means the run was cancelled by the user.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal reports whether the status is final.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}
