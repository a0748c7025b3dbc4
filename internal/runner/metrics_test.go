package runner

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/telemetry"
)

func TestExecute_ObservesStepDuration(t *testing.T) {
	c, _ := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name: "observed",
		Steps: []domain.StepSpec{
			{Name: "clip", Type: domain.StepTextToVideo, Params: map[string]any{"prompt": "a storm"}},
		},
	}

	before := stepDurationSamples(t, domain.StepTextToVideo)
	if _, err := c.Execute(context.Background(), cfg, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := stepDurationSamples(t, domain.StepTextToVideo)

	if after != before+1 {
		t.Errorf("expected one new duration sample for %s, got %d", domain.StepTextToVideo, after-before)
	}
}

// stepDurationSamples reads the sample count of the successful-step
// duration series for one step type.
func stepDurationSamples(t *testing.T, stepType string) uint64 {
	t.Helper()

	metric, ok := telemetry.StepDuration.WithLabelValues(stepType, "true").(prometheus.Metric)
	if !ok {
		t.Fatal("step duration series is not readable")
	}

	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("read step duration series: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
