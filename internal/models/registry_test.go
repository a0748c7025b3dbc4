package models

import (
	"errors"
	"math"
	"testing"

	"github.com/rovesti/fabrica/internal/domain"
)

func TestRegistry_Describe(t *testing.T) {
	r := DefaultRegistry()

	d, err := r.Describe("flux-dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Category != domain.StepTextToImage {
		t.Errorf("expected text_to_image, got %s", d.Category)
	}

	_, err = r.Describe("gpt-image-9000")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestRegistry_AutoResolve(t *testing.T) {
	r := DefaultRegistry()

	d, err := r.Resolve(domain.StepImageToVideo, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "kling-v1.5" {
		t.Errorf("expected default kling-v1.5, got %s", d.ID)
	}

	d, err = r.Resolve(domain.StepTextToImage, AutoModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "flux-dev" {
		t.Errorf("expected default flux-dev, got %s", d.ID)
	}

	_, err = r.Resolve("parallel_group", "")
	if !errors.Is(err, ErrNoDefaultModel) {
		t.Errorf("expected ErrNoDefaultModel, got %v", err)
	}
}

func TestRegistry_ValidateParams(t *testing.T) {
	r := DefaultRegistry()
	d, _ := r.Describe("flux-dev")

	if err := d.ValidateParams(map[string]any{"prompt": "a cat"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := d.ValidateParams(map[string]any{"steps": 30})
	if !errors.Is(err, ErrMissingParam) {
		t.Errorf("expected ErrMissingParam, got %v", err)
	}
}

func TestCatalog_CostFormulas(t *testing.T) {
	r := DefaultRegistry()

	kling, _ := r.Describe("kling-v1.5")
	if got := kling.Cost(map[string]any{"duration": 10}); math.Abs(got-1.30) > 1e-9 {
		t.Errorf("kling 10s: expected 1.30, got %v", got)
	}
	// Default duration is 5 seconds.
	if got := kling.Cost(nil); math.Abs(got-0.65) > 1e-9 {
		t.Errorf("kling default: expected 0.65, got %v", got)
	}

	flux, _ := r.Describe("flux-dev")
	if got := flux.Cost(map[string]any{"count": 4}); math.Abs(got-0.10) > 1e-9 {
		t.Errorf("flux count 4: expected 0.10, got %v", got)
	}

	tts, _ := r.Describe("eleven-multilingual-v2")
	if got := tts.Cost(map[string]any{"text": "hello"}); math.Abs(got-0.0009) > 1e-9 {
		t.Errorf("tts 5 chars: expected 0.0009, got %v", got)
	}

	stt, _ := r.Describe("whisper-large-v3")
	if got := stt.Cost(map[string]any{"duration": 120}); math.Abs(got-0.012) > 1e-9 {
		t.Errorf("whisper 2min: expected 0.012, got %v", got)
	}
}

func TestRegistry_ForCategory(t *testing.T) {
	r := DefaultRegistry()

	t2i := r.ForCategory(domain.StepTextToImage)
	if len(t2i) != 3 {
		t.Fatalf("expected 3 text_to_image models, got %d", len(t2i))
	}
	// Sorted by ID.
	if t2i[0].ID != "flux-dev" || t2i[1].ID != "flux-pro" || t2i[2].ID != "sdxl-turbo" {
		t.Errorf("unexpected order: %s %s %s", t2i[0].ID, t2i[1].ID, t2i[2].ID)
	}
}
