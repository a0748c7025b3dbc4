package models

import "errors"

var (
	// ErrModelNotFound — no model registered under the identifier.
	ErrModelNotFound = errors.New("model not found")

	// ErrNoDefaultModel — "auto" selection requested for a category
	// with no default model.
	ErrNoDefaultModel = errors.New("no default model for category")

	// ErrMissingParam — a required parameter is absent.
	ErrMissingParam = errors.New("missing required parameter")
)
