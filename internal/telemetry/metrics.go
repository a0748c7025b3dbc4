package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics exported by the runner and API services.
var (
	// RunsTotal counts finished runs by final status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrica",
		Name:      "runs_total",
		Help:      "Finished pipeline runs by final status.",
	}, []string{"status"})

	// ActiveRuns tracks runs currently executing.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fabrica",
		Name:      "active_runs",
		Help:      "Pipeline runs currently executing.",
	})

	// StepDuration observes step wall-clock time by step type.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabrica",
		Name:      "step_duration_seconds",
		Help:      "Step execution time by step type.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"step_type", "success"})

	// RunCost accumulates the dollar cost of finished runs.
	RunCost = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fabrica",
		Name:      "run_cost_dollars_total",
		Help:      "Accumulated cost of finished runs in dollars.",
	})

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrica",
		Name:      "http_requests_total",
		Help:      "API requests by route and status code.",
	}, []string{"route", "code"})
)

// ObserveStep records one step result.
func ObserveStep(stepType string, success bool, duration time.Duration) {
	label := "false"
	if success {
		label = "true"
	}
	StepDuration.WithLabelValues(stepType, label).Observe(duration.Seconds())
}

// ObserveRun records one finished run.
func ObserveRun(status string, totalCost float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunCost.Add(totalCost)
}
