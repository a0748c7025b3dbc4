// Package engine contains the pipeline resolution machinery.
//
// It includes:
//   - parser.go      — parsing and structural validation of a config
//   - graph.go       — execution graph and topological scheduling
//   - scope.go       — the accumulating run scope
//   - interpolate.go — {{token}} interpolation against the scope
//
// The engine understands the structure of a pipeline and determines
// the execution order of its steps. It never dispatches work itself.
package engine
