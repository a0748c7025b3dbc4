package engine

import "sync"

// InputKey is the reserved scope key holding the pipeline's initial
// input, addressed by the {{input}} token.
const InputKey = "input"

// Scope is the accumulating mapping from step name to produced output
// for one pipeline run.
//
// The run coordinator is the only writer; it commits outputs after a
// step (or a whole group) completes. Readers are the interpolation
// engine and the final report.
type Scope struct {
	mu     sync.RWMutex
	values map[string]any
}

// Entry is one scope binding, used for atomic batch commits.
type Entry struct {
	Name  string
	Value any
}

// NewScope creates a scope with the pipeline input bound to InputKey.
func NewScope(input string) *Scope {
	return &Scope{
		values: map[string]any{InputKey: input},
	}
}

// Set binds a step's output.
func (s *Scope) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// SetAll commits a batch of bindings under one lock, so a reader
// never observes a partially merged group.
func (s *Scope) SetAll(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.values[e.Name] = e.Value
	}
}

// Get returns the output bound to name.
func (s *Scope) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (s *Scope) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Len returns the number of bindings, the input key included.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
