package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rovesti/fabrica/internal/domain"
)

// Parse parses a pipeline config document from YAML.
//
// Parse only unmarshals; call Validate to check the structure before
// building an execution graph.
func Parse(data []byte) (*domain.PipelineConfig, error) {
	var cfg domain.PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// ParseFile reads and parses a pipeline config from a file.
func ParseFile(path string) (*domain.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Validate performs full structural validation of a config.
//
// stepTypes is the set of step types with a registered executor; the
// caller builds it from its executor registry so the check reflects
// what can actually run.
//
// Checks:
//   - step names present and unique (including group children)
//   - step types known
//   - input_from targets declared strictly earlier
//   - parallel groups are non-empty, not nested, and their children
//     do not reference siblings in the same group
func Validate(cfg *domain.PipelineConfig, stepTypes map[string]bool) error {
	if cfg == nil {
		return NewConfigError("", "", "config is nil", ErrInvalidConfig)
	}

	// seen holds names of steps declared before the point being
	// validated; input_from may only target names already in it.
	seen := make(map[string]bool)

	for i := range cfg.Steps {
		step := &cfg.Steps[i]

		if err := validateStep(step, seen, stepTypes); err != nil {
			return err
		}

		if step.IsGroup() {
			if err := validateGroup(step, seen, stepTypes); err != nil {
				return err
			}
		}
		seen[step.Name] = true
	}

	return nil
}

// validateStep checks one step against the names declared before it.
func validateStep(step *domain.StepSpec, seen map[string]bool, stepTypes map[string]bool) error {
	if step.Name == "" {
		return NewConfigError("", "name", "step has empty name", ErrEmptyStepName)
	}

	if seen[step.Name] {
		return NewConfigError(step.Name, "name",
			fmt.Sprintf("duplicate step name: %s", step.Name), ErrDuplicateStepName)
	}

	if step.Type == "" {
		return NewConfigError(step.Name, "type",
			"step has empty type", ErrUnknownStepType)
	}
	if !stepTypes[step.Type] {
		return NewConfigError(step.Name, "type",
			fmt.Sprintf("unknown step type: %s", step.Type), ErrUnknownStepType)
	}

	if step.InputFrom != "" {
		if step.InputFrom == step.Name {
			return NewConfigError(step.Name, "input_from",
				"step depends on itself", ErrSelfDependency)
		}
		if !seen[step.InputFrom] {
			return NewConfigError(step.Name, "input_from",
				fmt.Sprintf("references unknown or later step: %s", step.InputFrom),
				ErrForwardReference)
		}
	}

	return nil
}

// validateGroup checks a parallel group's children.
func validateGroup(group *domain.StepSpec, seen map[string]bool, stepTypes map[string]bool) error {
	if len(group.Steps) == 0 {
		return NewConfigError(group.Name, "steps",
			"parallel group has no steps", ErrEmptyGroup)
	}

	siblings := make(map[string]bool, len(group.Steps))
	for i := range group.Steps {
		siblings[group.Steps[i].Name] = true
	}

	for i := range group.Steps {
		child := &group.Steps[i]

		if child.IsGroup() {
			return NewConfigError(child.Name, "type",
				"nested parallel groups are not supported", ErrNestedGroup)
		}

		if err := validateStep(child, seen, stepTypes); err != nil {
			return err
		}

		// Siblings run concurrently; a reference between them could
		// never be satisfied at dispatch time.
		if child.InputFrom != "" && siblings[child.InputFrom] {
			return NewConfigError(child.Name, "input_from",
				fmt.Sprintf("references sibling %s in the same group", child.InputFrom),
				ErrSiblingReference)
		}

		seen[child.Name] = true
	}

	return nil
}
