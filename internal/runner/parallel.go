package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
)

// runGroup executes a parallel group's children on a bounded pool and
// commits their outputs to the scope as one batch.
//
// The group never short-circuits: every child reaches a terminal
// state before runGroup returns, and results keep declaration order
// regardless of completion order. Siblings are independent (enforced
// at resolve time), so children only read the scope, never each
// other.
func (c *Coordinator) runGroup(ctx context.Context, group *engine.Node, st *runState) []domain.StepResult {
	children := group.Children
	results := make([]domain.StepResult, len(children))

	limit := c.groupConcurrency(st.cfg.Settings, len(children))

	c.logger.Debug("running parallel group",
		"group", group.Name,
		"children", len(children),
		"concurrency", limit,
	)

	// errgroup is used purely for the bounded pool; children report
	// failure through their StepResult, so Go funcs never error and
	// no sibling is short-circuited.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, child := range children {
		g.Go(func() error {
			results[i] = c.dispatchStep(ctx, child, st)
			return nil
		})
	}
	_ = g.Wait() // children never return an error

	st.scope.SetAll(c.committable(st.cfg.Settings, children, results))

	return results
}

// committable selects which child outputs reach the scope, in
// declaration order. Under the default "partial" policy successful
// siblings commit even when the group failed; "atomic" commits all or
// nothing.
func (c *Coordinator) committable(settings domain.Settings, children []*engine.Node, results []domain.StepResult) []engine.Entry {
	allSucceeded := true
	for i := range results {
		if !results[i].Success {
			allSucceeded = false
			break
		}
	}

	if settings.GroupCommit == domain.CommitAtomic && !allSucceeded {
		return nil
	}

	entries := make([]engine.Entry, 0, len(results))
	for i := range results {
		if results[i].Success {
			entries = append(entries, engine.Entry{Name: children[i].Name, Value: results[i].Output})
		}
	}
	return entries
}

// groupConcurrency computes the pool size for one group.
func (c *Coordinator) groupConcurrency(settings domain.Settings, childCount int) int {
	if !settings.ParallelEnabled() {
		return 1
	}

	limit := settings.MaxConcurrency
	if limit <= 0 {
		limit = childCount
	}
	if limit > c.maxFanOut {
		limit = c.maxFanOut
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
