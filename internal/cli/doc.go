// Package cli implements the fabrica command line tool.
//
// # Overview
//
// The CLI is a client utility for the Fabrica API. It speaks HTTP for
// everything that touches the server: pipelines, runs, schedules and
// the model catalog. Two commands work locally without a server:
// "exec" runs a pipeline config through the engine on this machine,
// and "estimate" prices one.
//
// # Key components
//
// ## Client
//
// HTTP client for the Fabrica API. Encapsulates requests, response
// envelopes (DataResponse, ListResponse, ErrorResponse) and error
// mapping.
//
//	client := cli.NewClient("http://localhost:8080")
//	pipelines, err := client.ListPipelines()
//
// ## Output
//
// Output formatting. Two modes:
//   - tables (text/tabwriter), the default
//   - JSON (json encoder with indent), with the --json flag
//
// Data goes to stdout, messages (Success/Error) go to stderr, so
// piping works: fabrica pipeline list --json | jq .
//
// ## Commands
//
// Cobra commands grouped by resource:
//   - pipeline: list, create, show, update, delete, versions, publish
//   - run: list, start, show, cancel, results
//   - schedule: list, create, show, update, delete, enable, disable
//   - models: list
//   - exec, estimate: local execution and pricing
//
// Each group is built by a factory (NewPipelineCmd etc.) taking
// clientFn and outputFn closures, so Client and Output are created
// lazily after PersistentFlags are parsed.
package cli
