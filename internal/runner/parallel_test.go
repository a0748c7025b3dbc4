package runner

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rovesti/fabrica/internal/domain"
)

func groupConfig(settings domain.Settings) *domain.PipelineConfig {
	return &domain.PipelineConfig{
		Name:     "variants",
		Settings: settings,
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{
				Name: "group",
				Type: domain.StepParallelGroup,
				Steps: []domain.StepSpec{
					{Name: "vid_a", Type: domain.StepImageToVideo, InputFrom: "img", Params: map[string]any{"image": "{{img.url}}"}},
					{Name: "vid_b", Type: domain.StepImageToVideo, InputFrom: "img", Params: map[string]any{"image": "{{img.url}}"}},
					{Name: "vid_c", Type: domain.StepImageToVideo, InputFrom: "img", Params: map[string]any{"image": "{{img.url}}"}},
				},
			},
		},
	}
}

func TestRunGroup_StableMergeOrder(t *testing.T) {
	// Randomized completion latency must not affect result order.
	for round := 0; round < 5; round++ {
		c, fakes := newTestCoordinator(t)
		vid := fakes[domain.StepImageToVideo]
		for _, name := range []string{"vid_a", "vid_b", "vid_c"} {
			vid.latency[name] = time.Duration(rand.Intn(20)) * time.Millisecond
		}

		report, err := c.Execute(context.Background(), groupConfig(domain.Settings{}), "x")
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}

		if len(report.Results) != 4 {
			t.Fatalf("round %d: expected 4 results, got %d", round, len(report.Results))
		}
		want := []string{"img", "vid_a", "vid_b", "vid_c"}
		for i, name := range want {
			if report.Results[i].StepName != name {
				t.Errorf("round %d: results[%d] = %s, want %s",
					round, i, report.Results[i].StepName, name)
			}
		}
	}
}

func TestRunGroup_BoundedConcurrency(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	vid := fakes[domain.StepImageToVideo]
	for _, name := range []string{"vid_a", "vid_b", "vid_c"} {
		vid.latency[name] = 30 * time.Millisecond
	}

	settings := domain.Settings{MaxConcurrency: 1}
	if _, err := c.Execute(context.Background(), groupConfig(settings), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vid.mu.Lock()
	maxWork := vid.maxWork
	vid.mu.Unlock()
	if maxWork > 1 {
		t.Errorf("expected at most 1 concurrent child, observed %d", maxWork)
	}
}

func TestRunGroup_ParallelDisabled(t *testing.T) {
	disabled := false
	c, fakes := newTestCoordinator(t)
	vid := fakes[domain.StepImageToVideo]
	vid.latency["vid_a"] = 20 * time.Millisecond

	settings := domain.Settings{Parallel: &disabled}
	if _, err := c.Execute(context.Background(), groupConfig(settings), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vid.mu.Lock()
	maxWork := vid.maxWork
	vid.mu.Unlock()
	if maxWork != 1 {
		t.Errorf("parallel=false must serialize children, observed %d", maxWork)
	}
	if names := vid.callNames(); len(names) != 3 || names[0] != "vid_a" {
		t.Errorf("serialized group should run in declaration order, got %v", names)
	}
}

func TestRunGroup_NoShortCircuit(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepImageToVideo].failSteps["vid_b"] = true

	report, err := c.Execute(context.Background(), groupConfig(domain.Settings{}), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All three children reach a terminal state.
	if got := fakes[domain.StepImageToVideo].callCount(); got != 3 {
		t.Errorf("expected all 3 children dispatched, got %d", got)
	}
	if len(report.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(report.Results))
	}
	if report.Results[2].Success {
		t.Error("vid_b should be failed")
	}
	if !report.Results[1].Success || !report.Results[3].Success {
		t.Error("siblings of a failed child should still succeed")
	}
	if report.Success {
		t.Error("run with a failed child must not be successful")
	}
}

func TestRunGroup_PartialCommit(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepImageToVideo].failSteps["vid_b"] = true

	cfg := groupConfig(domain.Settings{})
	cfg.Steps = append(cfg.Steps, domain.StepSpec{
		Name: "analyze", Type: domain.StepVideoAnalysis, InputFrom: "vid_a",
		Params: map[string]any{"video": "{{vid_a.url}}"},
	})

	report, err := c.Execute(context.Background(), cfg, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// vid_a committed despite vid_b failing; analyze sees it.
	analyze := report.Results[len(report.Results)-1]
	if analyze.StepName != "analyze" || !analyze.Success {
		t.Errorf("downstream of a successful sibling should run, got %+v", analyze)
	}
}

func TestRunGroup_AtomicCommit(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepImageToVideo].failSteps["vid_b"] = true

	cfg := groupConfig(domain.Settings{GroupCommit: domain.CommitAtomic})
	cfg.Steps = append(cfg.Steps, domain.StepSpec{
		Name: "analyze", Type: domain.StepVideoAnalysis, InputFrom: "vid_a",
		Params: map[string]any{"video": "x"},
	})

	report, err := c.Execute(context.Background(), cfg, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Nothing from the group committed, so analyze fails on upstream.
	analyze := report.Results[len(report.Results)-1]
	if analyze.Success {
		t.Error("atomic commit should withhold sibling outputs from downstream")
	}
	if fakes[domain.StepVideoAnalysis].callCount() != 0 {
		t.Error("analyze handler should not be invoked without upstream output")
	}
}
