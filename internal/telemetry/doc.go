// Package telemetry provides observability for all services.
//
// It includes:
//   - logging.go — structured logging via slog
//   - metrics.go — Prometheus metrics
//
// Every service uses the same log setup and exports metrics on its
// /metrics endpoint.
package telemetry
