package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rovesti/fabrica/internal/domain"
)

// Registry maps step types to executors.
//
// The set is built explicitly at process start and passed to the run
// coordinator. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register adds an executor. An existing executor for the same type
// is overwritten.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

// Get returns the executor for a step type.
// Returns ErrExecutorNotFound for unregistered types.
func (r *Registry) Get(stepType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.executors[stepType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, stepType)
	}
	return e, nil
}

// Has reports whether a step type has an executor.
func (r *Registry) Has(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.executors[stepType]
	return exists
}

// Types returns all registered step types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StepTypeSet returns the set of step types a pipeline may declare:
// every registered executor type plus the structural parallel_group
// type, which has no executor of its own.
func (r *Registry) StepTypeSet() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool, len(r.executors)+1)
	for t := range r.executors {
		set[t] = true
	}
	set[domain.StepParallelGroup] = true
	return set
}
