package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/models"
)

func testModel() *models.Descriptor {
	return &models.Descriptor{
		ID:             "flux-dev",
		Category:       domain.StepTextToImage,
		RequiredParams: []string{"prompt"},
		Cost:           func(map[string]any) float64 { return 0.025 },
	}
}

func TestGateway_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate/text_to_image" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}

		var req gatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "flux-dev" {
			t.Errorf("expected model flux-dev, got %s", req.Model)
		}
		if req.Params["prompt"] != "a cat" {
			t.Errorf("expected resolved prompt, got %v", req.Params["prompt"])
		}

		json.NewEncoder(w).Encode(gatewayResponse{
			Output: map[string]any{"url": "https://cdn/img.png"},
			Cost:   0.03,
		})
	}))
	defer srv.Close()

	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: srv.URL, APIKey: "test-key"})

	resp, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"prompt": "a cat"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := resp.Output.(map[string]any)
	if output["url"] != "https://cdn/img.png" {
		t.Errorf("unexpected output: %v", output)
	}
	if resp.Cost != 0.03 {
		t.Errorf("expected cost 0.03, got %v", resp.Cost)
	}
}

func TestGateway_CostFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gatewayResponse{Output: "https://cdn/img.png"})
	}))
	defer srv.Close()

	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: srv.URL})

	resp, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"prompt": "a cat"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Cost != 0.025 {
		t.Errorf("expected catalog fallback cost 0.025, got %v", resp.Cost)
	}
}

func TestGateway_ProviderError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(gatewayResponse{Error: "model overloaded"})
	}))
	defer srv.Close()

	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: srv.URL, RetryDelay: time.Millisecond})

	_, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"prompt": "a cat"},
	})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if attempts != defaultMaxAttempts {
		t.Errorf("expected %d attempts before giving up, got %d", defaultMaxAttempts, attempts)
	}
}

func TestGateway_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(gatewayResponse{Error: "provider warming up"})
			return
		}
		json.NewEncoder(w).Encode(gatewayResponse{Output: "https://cdn/img.png", Cost: 0.03})
	}))
	defer srv.Close()

	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: srv.URL, RetryDelay: time.Millisecond})

	resp, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"prompt": "a cat"},
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if resp.Cost != 0.03 {
		t.Errorf("expected cost 0.03, got %v", resp.Cost)
	}
}

func TestGateway_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(gatewayResponse{Error: "prompt rejected"})
	}))
	defer srv.Close()

	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: srv.URL, RetryDelay: time.Millisecond})

	_, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"prompt": "a cat"},
	})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("client errors must not be retried, got %d attempts", attempts)
	}
}

func TestGateway_MissingRequiredParam(t *testing.T) {
	g := NewGateway(domain.StepTextToImage, GatewayConfig{BaseURL: "http://unused"})

	_, err := g.Execute(context.Background(), &Request{
		StepName: "img",
		Model:    testModel(),
		Params:   map[string]any{"steps": 30},
	})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestRegistry_StepTypeSet(t *testing.T) {
	r := DefaultRegistry(GatewayConfig{BaseURL: "http://unused"})

	set := r.StepTypeSet()
	for _, stepType := range domain.GenerationStepTypes() {
		if !set[stepType] {
			t.Errorf("missing %s in step type set", stepType)
		}
	}
	if !set[domain.StepParallelGroup] {
		t.Error("parallel_group should be declarable without an executor")
	}

	if _, err := r.Get("teleport"); !errors.Is(err, ErrExecutorNotFound) {
		t.Errorf("expected ErrExecutorNotFound, got %v", err)
	}
}
