package models

import (
	"fmt"
	"sort"
	"sync"
)

// AutoModel selects the category's default model at dispatch time.
const AutoModel = "auto"

// CostFn estimates the dollar cost of one invocation with the given
// parameters. Estimates use declared values and documented defaults.
type CostFn func(params map[string]any) float64

// Descriptor describes one registered model.
type Descriptor struct {
	// ID is the model identifier referenced by step specs.
	ID string

	// Category is the step type the model serves, e.g. "text_to_image".
	Category string

	// Provider is the hosting provider, informational only.
	Provider string

	// RequiredParams must be present in the resolved step params.
	RequiredParams []string

	// OptionalParams are accepted but not required.
	OptionalParams []string

	// Default marks the model used for "auto" selection within its
	// category. At most one model per category should set it.
	Default bool

	// Cost estimates a single invocation. Never nil for registered
	// models.
	Cost CostFn
}

// ValidateParams checks that every required parameter is present.
func (d *Descriptor) ValidateParams(params map[string]any) error {
	for _, name := range d.RequiredParams {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: %s (model %s)", ErrMissingParam, name, d.ID)
		}
	}
	return nil
}

// Registry maps model identifiers to descriptors. Safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*Descriptor
	defaults map[string]*Descriptor // category -> default model
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*Descriptor),
		defaults: make(map[string]*Descriptor),
	}
}

// Register adds a model. An existing descriptor with the same ID is
// overwritten.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
	if d.Default {
		r.defaults[d.Category] = d
	}
}

// Describe returns the descriptor for a model identifier.
// Returns ErrModelNotFound if the identifier is unknown.
func (r *Registry) Describe(id string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.byID[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return d, nil
}

// Resolve returns the descriptor a step should execute with: the
// named model, or the category default when the name is empty or
// "auto".
func (r *Registry) Resolve(category, id string) (*Descriptor, error) {
	if id == "" || id == AutoModel {
		r.mu.RLock()
		defer r.mu.RUnlock()
		d, exists := r.defaults[category]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrNoDefaultModel, category)
		}
		return d, nil
	}
	return r.Describe(id)
}

// Has reports whether a model identifier is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.byID[id]
	return exists
}

// ForCategory returns all models in a category, sorted by ID.
func (r *Registry) ForCategory(category string) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Descriptor, 0)
	for _, d := range r.byID {
		if d.Category == category {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// IDs returns all registered model identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
