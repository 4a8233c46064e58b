// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from metadata generation and comparison runs.
//
//   - Backend is a narrow interface over counters and timings.
//   - A global, pluggable backend defaults to a no-op, so calls are always
//     safe even when no metrics system is configured.
//   - Concrete systems live in subpackages (prompush, datadog) so the core
//     packages never import them.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal      = "dep_step_total"
	StepDuration   = "dep_step_duration_seconds"
	RecordsTotal   = "dep_records_total"
	CompareWarning = "dep_compare_warnings_total"
)

// Record kinds used with RecordsTotal.
const (
	KindWritten       = "written"
	KindTypeMismatch  = "type_mismatch"
	KindTruncation    = "truncation"
	KindNullViolation = "null_violation"
	KindRejectedID    = "rejected_id"
	KindAdvisory      = "advisory"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one run step (schema, render, manifest, export, compare)
// and records its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRecords increments the record-level counter for kind. Non-positive
// deltas are ignored.
func RecordRecords(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordCompareWarnings counts comparison warnings of one kind.
func RecordCompareWarnings(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(CompareWarning, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
