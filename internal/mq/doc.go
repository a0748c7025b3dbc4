// Package mq provides the RabbitMQ plumbing.
//
// Layout:
//   - connection.go — connection management (reconnect, graceful shutdown)
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — publishing run events
//   - consumer.go   — consuming run events
//
// Message types:
//   - run.submitted — a new run waits for execution
//   - run.completed — a run reached a terminal status
//   - run.cancelled — a user requested cancellation
//
// Exchanges:
//   - fabrica.runs — run events
//   - fabrica.dlq  — dead letter queue
package mq
