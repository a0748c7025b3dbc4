// Package api implements the HTTP API server.
//
// Structure:
//   - handler.go          — Handler with DI (repositories, publisher, coordinator, logger)
//   - routes.go           — route registration
//   - middleware.go       — middleware (logging, recovery, metrics)
//   - response.go         — uniform JSON responses and error mapping
//   - dto.go              — request/response objects
//   - pipeline_handler.go — handlers for /pipelines and versions
//   - run_handler.go      — handlers for /runs
//   - schedule_handler.go — handlers for /schedules
//   - model_handler.go    — handlers for /models and /estimate
//
// The API exposes REST endpoints for managing pipelines, runs,
// schedules and the model catalog.
package api
