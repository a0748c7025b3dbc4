package engine

import (
	"fmt"

	"github.com/rovesti/fabrica/internal/domain"
)

// Node is one step in the execution graph.
type Node struct {
	// Spec is the step definition from the config.
	Spec *domain.StepSpec

	// Name mirrors Spec.Name.
	Name string

	// DependsOn lists names of steps this node reads output from.
	DependsOn []string

	// IsGroup is true for parallel group nodes.
	IsGroup bool

	// Children are the group's child nodes, in declaration order.
	// Empty for plain steps.
	Children []*Node

	// GroupName names the enclosing group for child nodes, empty
	// otherwise.
	GroupName string
}

// ScheduleUnit is one entry of the linear schedule: either a single
// step executed synchronously or a whole group executed concurrently.
type ScheduleUnit struct {
	// Node is the step or group to execute.
	Node *Node

	// Concurrent is true when Node is a group whose children may be
	// dispatched in parallel.
	Concurrent bool
}

// ExecutionGraph is the derived dependency graph of one pipeline run.
//
// Built once per run from a validated config and discarded after the
// run completes.
type ExecutionGraph struct {
	// Nodes maps step name to node, group children included.
	Nodes map[string]*Node

	// Schedule is a topological order over units. A group is one
	// unit: all of its children join before the next unit starts.
	Schedule []ScheduleUnit
}

// Size returns the number of executable steps, counting group
// children but not the groups themselves.
func (g *ExecutionGraph) Size() int {
	n := 0
	for _, node := range g.Nodes {
		if !node.IsGroup {
			n++
		}
	}
	return n
}

// Node returns the node with the given step name, or nil.
func (g *ExecutionGraph) Node(name string) *Node {
	return g.Nodes[name]
}

// Resolve builds an execution graph from a pipeline config.
//
// Resolve performs its own reference and cycle checks so that
// programmatically built configs are rejected even when the parser's
// Validate pass was skipped:
//  1. flatten parallel groups into group nodes holding child nodes
//  2. derive dependency edges from input_from
//  3. reject dangling references and sibling references
//  4. detect cycles, naming every step on the cycle
//  5. emit a schedule that is a valid topological order of units,
//     preferring declaration order
//
// An empty pipeline is valid and resolves to an empty schedule.
func Resolve(cfg *domain.PipelineConfig) (*ExecutionGraph, error) {
	g := &ExecutionGraph{
		Nodes: make(map[string]*Node),
	}

	// units in declaration order; group children do not appear at the
	// unit level.
	units := make([]*Node, 0, len(cfg.Steps))

	for i := range cfg.Steps {
		step := &cfg.Steps[i]
		node, err := g.addNode(step)
		if err != nil {
			return nil, err
		}
		units = append(units, node)
	}

	if err := g.checkReferences(); err != nil {
		return nil, err
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}

	schedule, err := orderUnits(units, g.unitOf())
	if err != nil {
		return nil, err
	}
	g.Schedule = schedule

	return g, nil
}

// addNode registers a step (and, for groups, its children) in the
// graph.
func (g *ExecutionGraph) addNode(step *domain.StepSpec) (*Node, error) {
	if step.Name == "" {
		return nil, NewConfigError("", "name", "step has empty name", ErrEmptyStepName)
	}
	if _, exists := g.Nodes[step.Name]; exists {
		return nil, NewConfigError(step.Name, "name",
			fmt.Sprintf("duplicate step name: %s", step.Name), ErrDuplicateStepName)
	}

	node := &Node{
		Spec:    step,
		Name:    step.Name,
		IsGroup: step.IsGroup(),
	}
	if step.InputFrom != "" {
		node.DependsOn = []string{step.InputFrom}
	}
	g.Nodes[step.Name] = node

	if !node.IsGroup {
		return node, nil
	}

	if len(step.Steps) == 0 {
		return nil, NewConfigError(step.Name, "steps",
			"parallel group has no steps", ErrEmptyGroup)
	}

	siblings := make(map[string]bool, len(step.Steps))
	for i := range step.Steps {
		siblings[step.Steps[i].Name] = true
	}

	for i := range step.Steps {
		child := &step.Steps[i]
		if child.IsGroup() {
			return nil, NewConfigError(child.Name, "type",
				"nested parallel groups are not supported", ErrNestedGroup)
		}
		if child.InputFrom != "" && siblings[child.InputFrom] {
			return nil, NewConfigError(child.Name, "input_from",
				fmt.Sprintf("references sibling %s in the same group", child.InputFrom),
				ErrSiblingReference)
		}

		childNode, err := g.addNode(child)
		if err != nil {
			return nil, err
		}
		childNode.GroupName = step.Name
		node.Children = append(node.Children, childNode)
	}

	return node, nil
}

// checkReferences verifies every input_from target exists.
func (g *ExecutionGraph) checkReferences() error {
	for _, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			if dep == node.Name {
				return NewConfigError(node.Name, "input_from",
					"step depends on itself", ErrSelfDependency)
			}
			if _, exists := g.Nodes[dep]; !exists {
				return NewConfigError(node.Name, "input_from",
					fmt.Sprintf("references unknown step: %s", dep), ErrUnknownReference)
			}
		}
	}
	return nil
}

// checkCycles runs an iterative-coloring DFS over dependency edges.
// On a back-edge it returns a CycleError naming every cycle member.
func (g *ExecutionGraph) checkCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)

	color := make(map[string]int, len(g.Nodes))
	path := make([]string, 0, len(g.Nodes))

	var visit func(name string) *CycleError
	visit = func(name string) *CycleError {
		color[name] = gray
		path = append(path, name)

		for _, dep := range g.Nodes[name].DependsOn {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				// Back-edge: the cycle is the path suffix starting at dep.
				for i, member := range path {
					if member == dep {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						return &CycleError{Steps: cycle}
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for name := range g.Nodes {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// unitOf maps every step name to its schedule unit: group children
// map to their group node, everything else to itself.
func (g *ExecutionGraph) unitOf() map[string]*Node {
	m := make(map[string]*Node, len(g.Nodes))
	for name, node := range g.Nodes {
		if node.GroupName != "" {
			m[name] = g.Nodes[node.GroupName]
		} else {
			m[name] = node
		}
	}
	return m
}

// orderUnits produces the linear schedule via Kahn's algorithm lifted
// to the unit level. Ties are broken by declaration order, so a config
// whose references all point backwards schedules exactly as written.
func orderUnits(units []*Node, unitOf map[string]*Node) ([]ScheduleUnit, error) {
	// Dependency edges between units. A group unit inherits the
	// dependencies of the group itself and of all its children.
	deps := make(map[string]map[string]bool, len(units))
	for _, u := range units {
		set := make(map[string]bool)
		collect := func(n *Node) {
			for _, dep := range n.DependsOn {
				if target := unitOf[dep]; target != nil && target.Name != u.Name {
					set[target.Name] = true
				}
			}
		}
		collect(u)
		for _, child := range u.Children {
			collect(child)
		}
		deps[u.Name] = set
	}

	schedule := make([]ScheduleUnit, 0, len(units))
	done := make(map[string]bool, len(units))

	for len(schedule) < len(units) {
		progressed := false
		for _, u := range units {
			if done[u.Name] {
				continue
			}
			ready := true
			for dep := range deps[u.Name] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			done[u.Name] = true
			schedule = append(schedule, ScheduleUnit{Node: u, Concurrent: u.IsGroup})
			progressed = true
		}
		// checkCycles runs first, so a stall here cannot happen; the
		// guard keeps a malformed graph from looping forever.
		if !progressed {
			return nil, ErrCyclicDependency
		}
	}

	return schedule, nil
}
