package mq

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rovesti/fabrica/internal/domain"
)

// A run's typed status goes onto the wire as its plain string form.
func TestRunCompletedPayload_CarriesRunStatus(t *testing.T) {
	run := domain.Run{
		ID:        uuid.New(),
		Status:    domain.RunStatusCompleted,
		TotalCost: 1.25,
	}

	payload := RunCompletedPayload{
		RunID:     run.ID,
		Status:    run.Status,
		Success:   true,
		TotalCost: run.TotalCost,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["status"] != "COMPLETED" {
		t.Errorf("expected status COMPLETED on the wire, got %v", decoded["status"])
	}
	if decoded["run_id"] != run.ID.String() {
		t.Errorf("expected run_id %s, got %v", run.ID, decoded["run_id"])
	}
}
