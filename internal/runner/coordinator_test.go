package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rovesti/fabrica/internal/domain"
	"github.com/rovesti/fabrica/internal/engine"
	"github.com/rovesti/fabrica/internal/executor"
	"github.com/rovesti/fabrica/internal/models"
)

// fakeCall records one executor invocation.
type fakeCall struct {
	StepName string
	Params   map[string]any
	Upstream any
}

// fakeExecutor is a scriptable in-memory executor for one step type.
type fakeExecutor struct {
	stepType string

	mu      sync.Mutex
	calls   []fakeCall
	inWork  int
	maxWork int

	failSteps map[string]bool          // step names that fail
	latency   map[string]time.Duration // per-step artificial latency
	outputs   map[string]any           // per-step output override
	cost      float64
}

func newFakeExecutor(stepType string) *fakeExecutor {
	return &fakeExecutor{
		stepType:  stepType,
		failSteps: make(map[string]bool),
		latency:   make(map[string]time.Duration),
		outputs:   make(map[string]any),
		cost:      0.01,
	}
}

func (f *fakeExecutor) Type() string { return f.stepType }

func (f *fakeExecutor) Execute(ctx context.Context, req *executor.Request) (*executor.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{StepName: req.StepName, Params: req.Params, Upstream: req.UpstreamOutput})
	f.inWork++
	if f.inWork > f.maxWork {
		f.maxWork = f.inWork
	}
	delay := f.latency[req.StepName]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inWork--
	fail := f.failSteps[req.StepName]
	output, hasOutput := f.outputs[req.StepName]
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: synthetic failure", executor.ErrProviderFailure)
	}
	if !hasOutput {
		output = map[string]any{"url": "https://cdn/" + req.StepName}
	}
	return &executor.Response{Output: output, Cost: f.cost}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeExecutor) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.StepName
	}
	return names
}

// newTestCoordinator wires fakes for every generation step type and
// returns the coordinator plus the fakes by type.
func newTestCoordinator(t *testing.T) (*Coordinator, map[string]*fakeExecutor) {
	t.Helper()

	registry := executor.NewRegistry()
	fakes := make(map[string]*fakeExecutor)
	for _, stepType := range domain.GenerationStepTypes() {
		f := newFakeExecutor(stepType)
		fakes[stepType] = f
		registry.Register(f)
	}

	c := New(Config{
		Executors: registry,
		Models:    models.DefaultRegistry(),
		Logger:    slog.New(slog.DiscardHandler),
	})
	return c, fakes
}

func totalCalls(fakes map[string]*fakeExecutor) int {
	n := 0
	for _, f := range fakes {
		n += f.callCount()
	}
	return n
}

func TestExecute_ImageToVideoChain(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name: "cat-video",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "{{input}}"}},
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "img", Params: map[string]any{"duration": 5, "image": "{{img.url}}"}},
		},
	}

	report, err := c.Execute(context.Background(), cfg, "a cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Success || report.Status != domain.RunStatusCompleted {
		t.Errorf("expected successful run, got status=%s success=%v", report.Status, report.Success)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].StepName != "img" || report.Results[1].StepName != "vid" {
		t.Errorf("results out of order: %s, %s", report.Results[0].StepName, report.Results[1].StepName)
	}

	imgCalls := fakes[domain.StepTextToImage].calls
	if len(imgCalls) != 1 {
		t.Fatalf("expected 1 img invocation, got %d", len(imgCalls))
	}
	if imgCalls[0].Params["prompt"] != "a cat" {
		t.Errorf("expected interpolated prompt, got %v", imgCalls[0].Params["prompt"])
	}

	vidCalls := fakes[domain.StepImageToVideo].calls
	if len(vidCalls) != 1 {
		t.Fatalf("expected 1 vid invocation, got %d", len(vidCalls))
	}
	upstream, ok := vidCalls[0].Upstream.(map[string]any)
	if !ok || upstream["url"] != "https://cdn/img" {
		t.Errorf("vid should receive img's output, got %v", vidCalls[0].Upstream)
	}
	if vidCalls[0].Params["image"] != "https://cdn/img" {
		t.Errorf("field projection failed: %v", vidCalls[0].Params["image"])
	}

	if report.TotalCost != 0.02 {
		t.Errorf("expected total cost 0.02, got %v", report.TotalCost)
	}
	if report.Results[0].Model != "flux-dev" {
		t.Errorf("auto model resolution failed, got %q", report.Results[0].Model)
	}
}

func TestExecute_EmptyPipeline(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	report, err := c.Execute(context.Background(), &domain.PipelineConfig{Name: "noop"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Success || len(report.Results) != 0 {
		t.Errorf("empty pipeline should trivially succeed, got %+v", report)
	}
	if totalCalls(fakes) != 0 {
		t.Errorf("expected zero invocations, got %d", totalCalls(fakes))
	}
}

func TestExecute_FailFast(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepTextToImage].failSteps["s2"] = true

	cfg := &domain.PipelineConfig{
		Name:     "seq",
		Settings: domain.Settings{FailurePolicy: domain.FailFast},
		Steps: []domain.StepSpec{
			{Name: "s1", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s2", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s3", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s4", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
		},
	}

	report, err := c.Execute(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", report.Status)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected exactly 2 results, got %d", len(report.Results))
	}
	if report.Results[1].Success {
		t.Error("s2 should be marked failed")
	}

	names := fakes[domain.StepTextToImage].callNames()
	if len(names) != 2 || names[0] != "s1" || names[1] != "s2" {
		t.Errorf("s3/s4 must never be dispatched, got calls %v", names)
	}
}

func TestExecute_ContinuePolicy(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepTextToImage].failSteps["s2"] = true

	cfg := &domain.PipelineConfig{
		Name: "seq",
		Steps: []domain.StepSpec{
			{Name: "s1", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s2", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s3", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "s4", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
		},
	}

	report, err := c.Execute(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The schedule completes; the mixed result is visible in Success.
	if report.Status != domain.RunStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", report.Status)
	}
	if report.Success {
		t.Error("run with a failed step must not be successful")
	}
	if len(report.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(report.Results))
	}
	if report.Results[1].Success {
		t.Error("s2 should be failed")
	}
	if !report.Results[0].Success || !report.Results[2].Success || !report.Results[3].Success {
		t.Error("independent steps should still execute")
	}
	if report.Error == "" {
		t.Error("report should carry the first failure")
	}
}

func TestExecute_DependentOfFailedStep(t *testing.T) {
	c, fakes := newTestCoordinator(t)
	fakes[domain.StepTextToImage].failSteps["img"] = true

	cfg := &domain.PipelineConfig{
		Name: "chain",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "img", Params: map[string]any{"image": "x"}},
		},
	}

	report, err := c.Execute(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	vid := report.Results[1]
	if vid.Success {
		t.Error("vid should fail without upstream output")
	}
	if !strings.Contains(vid.Error, ErrUpstreamUnavailable.Error()) {
		t.Errorf("vid should carry an upstream error, got %q", vid.Error)
	}
	// The handler itself was never invoked for vid.
	if fakes[domain.StepImageToVideo].callCount() != 0 {
		t.Errorf("vid handler should not be invoked, got %d calls", fakes[domain.StepImageToVideo].callCount())
	}
}

func TestExecute_DanglingReferenceIsFatal(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name: "bad",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
			{Name: "vid", Type: domain.StepImageToVideo, InputFrom: "missing"},
		},
	}

	_, err := c.Execute(context.Background(), cfg, "")
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, engine.ErrForwardReference) && !errors.Is(err, engine.ErrUnknownReference) {
		t.Errorf("expected reference error, got %v", err)
	}
	if totalCalls(fakes) != 0 {
		t.Errorf("no handler may be invoked on a config error, got %d calls", totalCalls(fakes))
	}
}

func TestExecute_UnknownModelIsFatal(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name: "bad",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Model: "gpt-image-9000", Params: map[string]any{"prompt": "x"}},
		},
	}

	_, err := c.Execute(context.Background(), cfg, "")
	if !errors.Is(err, models.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if totalCalls(fakes) != 0 {
		t.Errorf("expected zero invocations, got %d", totalCalls(fakes))
	}
}

func TestExecute_CostLimitRefusal(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name:     "pricey",
		Settings: domain.Settings{CostLimit: 0.01},
		Steps: []domain.StepSpec{
			// flux-dev estimates 0.025 per image.
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
		},
	}

	_, err := c.Execute(context.Background(), cfg, "")
	if !errors.Is(err, ErrCostLimitExceeded) {
		t.Fatalf("expected ErrCostLimitExceeded, got %v", err)
	}
	if totalCalls(fakes) != 0 {
		t.Errorf("expected zero invocations, got %d", totalCalls(fakes))
	}
}

func TestExecute_Cancellation(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &domain.PipelineConfig{
		Name: "cancelled",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "x"}},
		},
	}

	report, err := c.Execute(ctx, cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != domain.RunStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", report.Status)
	}
	if totalCalls(fakes) != 0 {
		t.Errorf("no unit may be dispatched after cancellation, got %d calls", totalCalls(fakes))
	}
}

func TestExecute_DefaultInputFromConfig(t *testing.T) {
	c, fakes := newTestCoordinator(t)

	cfg := &domain.PipelineConfig{
		Name:  "defaults",
		Input: "ocean sunset",
		Steps: []domain.StepSpec{
			{Name: "img", Type: domain.StepTextToImage, Params: map[string]any{"prompt": "{{input}}, cinematic"}},
		},
	}

	if _, err := c.Execute(context.Background(), cfg, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := fakes[domain.StepTextToImage].calls
	if calls[0].Params["prompt"] != "ocean sunset, cinematic" {
		t.Errorf("expected config default input, got %v", calls[0].Params["prompt"])
	}
}
