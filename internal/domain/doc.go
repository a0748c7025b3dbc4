// Package domain holds the entities shared by every layer: pipeline
// configs and their stored versions, runs with their status state
// machine, per-step results and run reports, cost estimates and
// schedules. It has no dependencies on storage, transport or the
// engine.
package domain
