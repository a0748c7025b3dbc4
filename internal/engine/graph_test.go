package engine

import (
	"errors"
	"testing"

	"github.com/rovesti/fabrica/internal/domain"
)

func TestResolve_SimpleChain(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage},
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "img"},
			{Name: "up", Type: domain.StepUpscale, InputFrom: "vid"},
		},
	}

	g, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 steps, got %d", g.Size())
	}
	if len(g.Schedule) != 3 {
		t.Fatalf("expected 3 schedule units, got %d", len(g.Schedule))
	}

	want := []string{"img", "vid", "up"}
	for i, unit := range g.Schedule {
		if unit.Node.Name != want[i] {
			t.Errorf("schedule[%d]: expected %s, got %s", i, want[i], unit.Node.Name)
		}
		if unit.Concurrent {
			t.Errorf("schedule[%d]: plain step marked concurrent", i)
		}
	}
}

func TestResolve_EmptyPipeline(t *testing.T) {
	g, err := Resolve(&domain.PipelineConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Schedule) != 0 {
		t.Errorf("expected empty schedule, got %d units", len(g.Schedule))
	}
}

func TestResolve_ParallelGroup(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage},
			{
				Name: "variants",
				Type: domain.StepParallelGroup,
				Steps: []domain.StepSpec{
					{Name: "vid_a", Type: domain.StepImageToVideo, InputFrom: "img"},
					{Name: "vid_b", Type: domain.StepImageToVideo, InputFrom: "img"},
				},
			},
			{Name: "analyze", Type: domain.StepVideoAnalysis, InputFrom: "vid_a"},
		},
	}

	g, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Schedule) != 3 {
		t.Fatalf("expected 3 schedule units, got %d", len(g.Schedule))
	}

	group := g.Schedule[1]
	if !group.Concurrent {
		t.Error("group unit should be concurrent")
	}
	if len(group.Node.Children) != 2 {
		t.Errorf("expected 2 children, got %d", len(group.Node.Children))
	}
	if group.Node.Children[0].Name != "vid_a" || group.Node.Children[1].Name != "vid_b" {
		t.Error("children should keep declaration order")
	}

	// A step after the group that reads a child depends on the whole group.
	if g.Schedule[2].Node.Name != "analyze" {
		t.Errorf("expected analyze last, got %s", g.Schedule[2].Node.Name)
	}
	if g.Node("vid_a").GroupName != "variants" {
		t.Errorf("child should carry group name, got %q", g.Node("vid_a").GroupName)
	}
}

func TestResolve_ForwardReference(t *testing.T) {
	// Programmatically built configs may reference later steps; the
	// schedule must still be a valid topological order.
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "img"},
			{Name: "img", Type: domain.StepTextToImage},
		},
	}

	g, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Schedule[0].Node.Name != "img" || g.Schedule[1].Node.Name != "vid" {
		t.Errorf("expected img before vid, got %s then %s",
			g.Schedule[0].Node.Name, g.Schedule[1].Node.Name)
	}
}

func TestResolve_Cycle(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "a", Type: domain.StepTextToImage, InputFrom: "c"},
			{Name: "b", Type: domain.StepImageToVideo, InputFrom: "a"},
			{Name: "c", Type: domain.StepUpscale, InputFrom: "b"},
		},
	}

	_, err := Resolve(cfg)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Steps) != 3 {
		t.Fatalf("expected 3 cycle members, got %v", cycleErr.Steps)
	}
	members := make(map[string]bool)
	for _, s := range cycleErr.Steps {
		members[s] = true
	}
	for _, name := range []string{"a", "b", "c"} {
		if !members[name] {
			t.Errorf("cycle should name %s, got %v", name, cycleErr.Steps)
		}
	}
}

func TestResolve_SelfDependency(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, InputFrom: "img"},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestResolve_DanglingReference(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage},
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "missing"},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrUnknownReference) {
		t.Errorf("expected ErrUnknownReference, got %v", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.StepName != "vid" {
		t.Errorf("error should name the referencing step, got %q", cfgErr.StepName)
	}
}

func TestResolve_SiblingReference(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{
				Name: "group",
				Type: domain.StepParallelGroup,
				Steps: []domain.StepSpec{
					{Name: "a", Type: domain.StepTextToImage},
					{Name: "b", Type: domain.StepImageToVideo, InputFrom: "a"},
				},
			},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrSiblingReference) {
		t.Errorf("expected ErrSiblingReference, got %v", err)
	}
}

func TestResolve_DuplicateName(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage},
			{Name: "img", Type: domain.StepUpscale},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrDuplicateStepName) {
		t.Errorf("expected ErrDuplicateStepName, got %v", err)
	}
}

func TestResolve_NestedGroup(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{
				Name: "outer",
				Type: domain.StepParallelGroup,
				Steps: []domain.StepSpec{
					{
						Name: "inner",
						Type: domain.StepParallelGroup,
						Steps: []domain.StepSpec{
							{Name: "a", Type: domain.StepTextToImage},
						},
					},
				},
			},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrNestedGroup) {
		t.Errorf("expected ErrNestedGroup, got %v", err)
	}
}

func TestResolve_EmptyGroup(t *testing.T) {
	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "group", Type: domain.StepParallelGroup},
		},
	}

	_, err := Resolve(cfg)
	if !errors.Is(err, ErrEmptyGroup) {
		t.Errorf("expected ErrEmptyGroup, got %v", err)
	}
}
