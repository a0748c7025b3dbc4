// Package models holds the model registry: a catalog of generation
// and analysis models keyed by identifier, each carrying its category,
// parameter contract and cost function.
//
// The registry is built explicitly at process start and injected into
// whatever needs lookups (dispatch, cost estimation). There is no
// package-level registration.
package models
