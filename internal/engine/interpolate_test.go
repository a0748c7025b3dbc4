package engine

import (
	"errors"
	"testing"
)

func TestInterpolate_InputToken(t *testing.T) {
	scope := NewScope("ocean sunset")

	params := map[string]any{
		"prompt": "{{input}}, cinematic",
	}

	resolved, err := InterpolateParams("img", params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["prompt"] != "ocean sunset, cinematic" {
		t.Errorf("expected %q, got %q", "ocean sunset, cinematic", resolved["prompt"])
	}
}

func TestInterpolate_ExactTokenKeepsType(t *testing.T) {
	scope := NewScope("")
	scope.Set("analysis", map[string]any{"score": 0.92, "tags": []any{"cat"}})

	params := map[string]any{
		"report": "{{analysis}}",
	}

	resolved, err := InterpolateParams("notify", params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, ok := resolved["report"].(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %T", resolved["report"])
	}
	if report["score"] != 0.92 {
		t.Errorf("expected score 0.92, got %v", report["score"])
	}
}

func TestInterpolate_FieldProjection(t *testing.T) {
	scope := NewScope("")
	scope.Set("img", map[string]any{"url": "https://cdn/img.png", "seed": 42})

	params := map[string]any{
		"image":   "{{img.url}}",
		"caption": "seed {{img.seed}}",
	}

	resolved, err := InterpolateParams("vid", params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["image"] != "https://cdn/img.png" {
		t.Errorf("expected url, got %v", resolved["image"])
	}
	if resolved["caption"] != "seed 42" {
		t.Errorf("expected %q, got %v", "seed 42", resolved["caption"])
	}
}

func TestInterpolate_NestedValues(t *testing.T) {
	scope := NewScope("a cat")
	scope.Set("img", map[string]any{"url": "https://cdn/img.png"})

	params := map[string]any{
		"options": map[string]any{
			"source": "{{img.url}}",
			"count":  3,
		},
		"prompts": []any{"{{input}}", "static"},
	}

	resolved, err := InterpolateParams("vid", params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	options := resolved["options"].(map[string]any)
	if options["source"] != "https://cdn/img.png" {
		t.Errorf("nested map not interpolated: %v", options["source"])
	}
	if options["count"] != 3 {
		t.Errorf("numeric leaf should pass through, got %v", options["count"])
	}

	prompts := resolved["prompts"].([]any)
	if prompts[0] != "a cat" || prompts[1] != "static" {
		t.Errorf("sequence not interpolated: %v", prompts)
	}
}

func TestInterpolate_UnresolvedToken(t *testing.T) {
	scope := NewScope("x")

	_, err := InterpolateParams("vid", map[string]any{"image": "{{missing}}"}, scope)
	if !errors.Is(err, ErrUnresolvedToken) {
		t.Fatalf("expected ErrUnresolvedToken, got %v", err)
	}

	var interpErr *InterpolationError
	if !errors.As(err, &interpErr) {
		t.Fatalf("expected *InterpolationError, got %T", err)
	}
	if interpErr.StepName != "vid" {
		t.Errorf("error should name the step, got %q", interpErr.StepName)
	}
	if interpErr.Token != "{{missing}}" {
		t.Errorf("error should name the token, got %q", interpErr.Token)
	}
}

func TestInterpolate_UnresolvedField(t *testing.T) {
	scope := NewScope("")
	scope.Set("img", map[string]any{"url": "https://cdn/img.png"})

	_, err := InterpolateParams("vid", map[string]any{"image": "{{img.nope}}"}, scope)
	if !errors.Is(err, ErrUnresolvedField) {
		t.Errorf("expected ErrUnresolvedField, got %v", err)
	}
}

func TestInterpolate_FieldOnScalarOutput(t *testing.T) {
	scope := NewScope("")
	scope.Set("img", "https://cdn/img.png")

	_, err := InterpolateParams("vid", map[string]any{"image": "{{img.url}}"}, scope)
	if !errors.Is(err, ErrUnresolvedField) {
		t.Errorf("expected ErrUnresolvedField, got %v", err)
	}
}

func TestInterpolate_EmbeddedNonScalar(t *testing.T) {
	scope := NewScope("")
	scope.Set("analysis", map[string]any{"score": 1})

	_, err := InterpolateParams("notify", map[string]any{"text": "result: {{analysis}}"}, scope)
	if !errors.Is(err, ErrNonScalarToken) {
		t.Errorf("expected ErrNonScalarToken, got %v", err)
	}
}

func TestInterpolate_NoTokens(t *testing.T) {
	scope := NewScope("")

	params := map[string]any{"prompt": "plain text", "steps": 30, "hd": true}
	resolved, err := InterpolateParams("img", params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["prompt"] != "plain text" || resolved["steps"] != 30 || resolved["hd"] != true {
		t.Errorf("values should pass through unchanged: %v", resolved)
	}
}

func TestInterpolate_MultipleTokens(t *testing.T) {
	scope := NewScope("forest")
	scope.Set("style", "watercolor")

	resolved, err := InterpolateParams("img",
		map[string]any{"prompt": "{{input}} in {{style}} style"}, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["prompt"] != "forest in watercolor style" {
		t.Errorf("got %q", resolved["prompt"])
	}
}

func TestScope_SetAllBatch(t *testing.T) {
	scope := NewScope("x")
	scope.SetAll([]Entry{
		{Name: "a", Value: 1},
		{Name: "b", Value: 2},
	})

	if v, ok := scope.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %v", v)
	}
	if v, ok := scope.Get("b"); !ok || v != 2 {
		t.Errorf("expected b=2, got %v", v)
	}
	if scope.Len() != 3 {
		t.Errorf("expected 3 bindings including input, got %d", scope.Len())
	}
}
