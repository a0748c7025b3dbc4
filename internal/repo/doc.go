// Package repo implements Postgres persistence over pgx: pipelines
// with immutable versions, runs, per-step results and schedules.
// Repositories return ErrNotFound on missing rows so callers match
// with errors.Is instead of inspecting pgx errors.
package repo
