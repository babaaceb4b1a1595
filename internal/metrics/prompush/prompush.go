// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A batch pipeline has no long-lived process for Prometheus to scrape, so
// metrics are collected in a private registry and pushed to a Pushgateway at
// the end of the run. All Prometheus-specific dependencies stay in this
// package.
package prompush

import (
	"fmt"

	"github.com/darknuma/restaurant-etl/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // pipeline_stage_total
	stageDuration *prometheus.SummaryVec // pipeline_stage_duration_seconds

	rowCounter       *prometheus.CounterVec // pipeline_rows_total
	violationCounter *prometheus.CounterVec // pipeline_violations_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// "job" grouping key and defaults to "restaurant-etl" when empty.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "restaurant-etl"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipeline_stage_duration_seconds",
			Help:       "Pipeline stage durations in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_total",
			Help: "Rows written per relation (staging and result tables).",
		},
		[]string{"table"},
	)
	violationCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_violations_total",
			Help: "Data-quality violations found by the validation gate, by kind.",
		},
		[]string{"kind"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter, violationCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:       gatewayURL,
		jobName:          jobName,
		reg:              reg,
		stageCounter:     stageCounter,
		stageDuration:    stageDuration,
		rowCounter:       rowCounter,
		violationCounter: violationCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipeline_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "pipeline_rows_total":
		b.rowCounter.WithLabelValues(labels["table"]).Add(delta)
	case "pipeline_violations_total":
		b.violationCounter.WithLabelValues(labels["kind"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipeline_stage_duration_seconds" {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
