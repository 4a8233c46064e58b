// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Batch runs are short lived, so metrics are pushed to a Pushgateway on Flush
// instead of being exposed for scraping. The job label of each observation
// is dropped in favour of the Pushgateway "job" grouping key.
package prompush

import (
	"fmt"

	"dep/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	grouping   map[string]string
	reg        *prometheus.Registry

	stepCounter    *prometheus.CounterVec // dep_step_total
	stepDuration   *prometheus.SummaryVec // dep_step_duration_seconds
	recordCounter  *prometheus.CounterVec // dep_records_total
	compareCounter *prometheus.CounterVec // dep_compare_warnings_total
}

// NewBackend constructs a Pushgateway backend. grouping adds extra grouping
// key labels (e.g. instrument, run_id) to every push.
func NewBackend(jobName, gatewayURL string, grouping map[string]string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dep"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of run steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record-level counts per kind (written, type_mismatch, truncation, ...).",
		},
		[]string{"kind"},
	)
	compareCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.CompareWarning,
			Help: "Table comparison warnings per kind.",
		},
		[]string{"kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":    stepCounter,
		"step summary":    stepDuration,
		"record counter":  recordCounter,
		"compare counter": compareCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:     gatewayURL,
		jobName:        jobName,
		grouping:       grouping,
		reg:            reg,
		stepCounter:    stepCounter,
		stepDuration:   stepDuration,
		recordCounter:  recordCounter,
		compareCounter: compareCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RecordsTotal:
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.CompareWarning:
		if b.compareCounter == nil {
			return
		}
		b.compareCounter.WithLabelValues(labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	return p.Push()
}
