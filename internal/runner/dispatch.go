package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
	"github.com/rovesti/fabrica/internal/executor"
)

// dispatchStep executes one plain step and returns its result.
//
// Failures never propagate past the step boundary: interpolation
// errors, missing upstream output and provider failures all come back
// as a failed StepResult. The coordinator decides whether the run
// continues.
func (c *Coordinator) dispatchStep(ctx context.Context, node *engine.Node, st *runState) domain.StepResult {
	step := node.Spec
	started := time.Now()

	result := domain.StepResult{
		ID:       uuid.New(),
		StepName: step.Name,
		StepType: step.Type,
	}

	descriptor := st.descriptors[step.Name]
	if descriptor != nil {
		result.Model = descriptor.ID
	}

	fail := func(err error) domain.StepResult {
		result.Error = err.Error()
		result.Duration = time.Since(started)
		c.logger.Warn("step failed",
			"step", step.Name,
			"type", step.Type,
			"error", err,
		)
		return result
	}

	var upstream any
	if step.InputFrom != "" {
		v, ok := st.scope.Get(step.InputFrom)
		if !ok {
			return fail(fmt.Errorf("%w: %s", ErrUpstreamUnavailable, step.InputFrom))
		}
		upstream = v
	}

	params, err := engine.InterpolateParams(step.Name, step.Params, st.scope)
	if err != nil {
		return fail(err)
	}

	exec, err := c.executors.Get(step.Type)
	if err != nil {
		return fail(err)
	}

	c.logger.Debug("dispatching step",
		"step", step.Name,
		"type", step.Type,
		"model", result.Model,
	)

	resp, err := exec.Execute(ctx, &executor.Request{
		StepName:       step.Name,
		Model:          descriptor,
		Params:         params,
		UpstreamOutput: upstream,
	})
	result.Duration = time.Since(started)
	if err != nil {
		result.Error = err.Error()
		c.logger.Warn("step failed",
			"step", step.Name,
			"type", step.Type,
			"duration", result.Duration,
			"error", err,
		)
		return result
	}

	result.Success = true
	result.Output = resp.Output
	result.Cost = resp.Cost

	c.logger.Debug("step completed",
		"step", step.Name,
		"duration", result.Duration,
		"cost", result.Cost,
	)
	return result
}
