// Package metrics is a small backend-agnostic layer for recording pipeline
// run metrics.
//
// A global pluggable backend defaults to a no-op, so recording is always safe
// even when no metrics system is configured. Concrete systems live in
// subpackages and are installed with SetBackend; the rest of the codebase
// depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
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

// RecordStage records one pipeline stage execution: a count partitioned by
// stage and outcome plus its duration. Stages are the run phases, e.g.
// "schema", "ingest", "validate", "transform", "materialize".
func RecordStage(stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"stage": stage, "status": status}
	backend.IncCounter("pipeline_stage_total", 1, lbls)
	backend.ObserveHistogram("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments the per-relation row counter. Typical relations are
// the staging and result table names.
func RecordRows(table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rows_total", float64(delta), Labels{"table": table})
}

// RecordViolations counts data-quality violations by kind.
func RecordViolations(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_violations_total", float64(delta), Labels{"kind": kind})
}
