// Package scheduler submits runs for due schedules.
//
// The scheduler periodically looks up schedules whose next_due_at has
// passed, creates a PENDING run for each and advances next_due_at.
//
// Structure:
//   - scheduler.go — Tick and per-schedule processing
//   - cron.go      — cron/interval parsing and next fire time math
//
// Usage:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: scheduleRepo,
//	    Runs:      runRepo,
//	    Pipelines: pipelineRepo,
//	    Publisher: publisher, // optional
//	    Logger:    logger,
//	})
//
//	// called every tick, usually once a second
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// The scheduler does not do leader election itself. That happens in
// main.go via pg_try_advisory_lock; Tick is only called on the leader.
package scheduler
