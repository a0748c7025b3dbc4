// Package runner drives pipeline runs.
//
// The Coordinator executes one validated pipeline config: it walks the
// schedule produced by the engine, dispatches steps to executors,
// runs parallel groups on a bounded pool, and aggregates cost and
// per-step results into a run report.
//
// The Service wraps the Coordinator for the daemon: it consumes
// submitted runs from the queue (with a polling fallback), persists
// progress, and publishes completion events.
package runner
