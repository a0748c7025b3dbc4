package runner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
)

func TestStampRunID(t *testing.T) {
	runID := uuid.New()
	report := &domain.RunReport{
		Results: []domain.StepResult{
			{ID: uuid.New(), StepName: "img"},
			{ID: uuid.New(), StepName: "vid"},
			{ID: uuid.New(), StepName: "tts"},
		},
	}

	stampRunID(report, runID)

	if report.RunID != runID {
		t.Errorf("report not bound to run: %s", report.RunID)
	}
	for i := range report.Results {
		res := &report.Results[i]
		if res.RunID == uuid.Nil {
			t.Errorf("result %s would persist orphaned", res.StepName)
		}
		if res.RunID != runID {
			t.Errorf("result %s bound to wrong run: %s", res.StepName, res.RunID)
		}
		if res.Seq != i {
			t.Errorf("result %s has seq %d, want %d", res.StepName, res.Seq, i)
		}
	}
}
