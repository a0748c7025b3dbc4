package runner

import (
	"math"
	"testing"

	"github.com/rovesti/fabrica/internal/domain"
)

func TestEstimate_SumsAllSteps(t *testing.T) {
	c, _ := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name: "teaser",
		Steps: []domain.StepSpec{
			// flux-dev: 0.025 per image
			{Name: "img", Type: domain.StepTextToImage, Model: "flux-dev", Params: map[string]any{"prompt": "x"}},
			{
				Name: "group",
				Type: domain.StepParallelGroup,
				Steps: []domain.StepSpec{
					// kling: 0.13/s * 10s = 1.30
					{Name: "vid_a", Type: domain.StepImageToVideo, Model: "kling-v1.5", InputFrom: "img", Params: map[string]any{"image": "x", "duration": 10}},
					// runway: 0.25/s * 4s = 1.00
					{Name: "vid_b", Type: domain.StepImageToVideo, Model: "runway-gen3", InputFrom: "img", Params: map[string]any{"image": "x", "duration": 4}},
				},
			},
		},
	}

	est, err := c.Estimate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Parallel children are summed, not maximized.
	want := 0.025 + 1.30 + 1.00
	if math.Abs(est.Total-want) > 1e-9 {
		t.Errorf("expected total %v, got %v", want, est.Total)
	}
	if len(est.Breakdown) != 3 {
		t.Fatalf("expected 3 breakdown items, got %d", len(est.Breakdown))
	}
	if est.Breakdown[0].StepName != "img" || est.Breakdown[1].StepName != "vid_a" || est.Breakdown[2].StepName != "vid_b" {
		t.Errorf("breakdown out of declaration order: %+v", est.Breakdown)
	}
	if len(est.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", est.Warnings)
	}
}

func TestEstimate_UnknownModelWarns(t *testing.T) {
	c, _ := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Model: "flux-dev", Params: map[string]any{"prompt": "x"}},
			{Name: "vid", Type: domain.StepImageToVideo, Model: "unreleased-gen9", InputFrom: "img"},
		},
	}

	est, err := c.Estimate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(est.Total-0.025) > 1e-9 {
		t.Errorf("priced steps should still sum, got %v", est.Total)
	}
	if len(est.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", est.Warnings)
	}
}

func TestEstimate_CostLimitWarning(t *testing.T) {
	c, _ := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Settings: domain.Settings{CostLimit: 0.01},
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Model: "flux-dev", Params: map[string]any{"prompt": "x"}},
		},
	}

	est, err := c.Estimate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(est.Warnings) != 1 {
		t.Errorf("expected a cost limit warning, got %v", est.Warnings)
	}
}
