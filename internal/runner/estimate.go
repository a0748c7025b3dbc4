package runner

import (
	"fmt"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
)

// Estimate computes the dry-run cost of a pipeline without dispatching
// anything.
//
// Every dispatchable step contributes its model's cost function
// applied to the declared params; parallel group children are summed,
// not maximized, because providers bill regardless of wall-clock
// overlap. A step whose model cannot be resolved becomes a warning
// rather than an error, so a partially priced estimate is still
// useful. Interpolation tokens in params are left as written: the
// estimate uses declared values and model defaults.
func (c *Coordinator) Estimate(cfg *domain.PipelineConfig) (*domain.CostEstimate, error) {
	if err := engine.Validate(cfg, c.executors.StepTypeSet()); err != nil {
		return nil, err
	}

	graph, err := engine.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	est := &domain.CostEstimate{}

	for _, unit := range graph.Schedule {
		for _, node := range stepsOf(unit.Node) {
			spec := node.Spec

			descriptor, err := c.models.Resolve(spec.Type, spec.Model)
			if err != nil {
				est.Warnings = append(est.Warnings,
					fmt.Sprintf("step %s: %v", spec.Name, err))
				continue
			}

			cost := descriptor.Cost(spec.Params)
			est.Breakdown = append(est.Breakdown, domain.CostItem{
				StepName: spec.Name,
				StepType: spec.Type,
				Model:    descriptor.ID,
				Cost:     cost,
			})
			est.Total += cost
		}
	}

	if limit := cfg.Settings.CostLimit; limit > 0 && est.Total > limit {
		est.Warnings = append(est.Warnings,
			fmt.Sprintf("estimated total %.4f exceeds cost limit %.4f", est.Total, limit))
	}

	return est, nil
}
