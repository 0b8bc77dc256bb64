// Package metrics holds the Prometheus collectors for pipeline runs, remote
// retries and dataset builds. Collectors live in a private registry served at
// /metrics. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookflow"

// Run outcomes.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// Metrics is the set of bookflow collectors.
type Metrics struct {
	registry *prometheus.Registry

	// PipelineRuns counts finished runs. Labels: outcome, stage (the failed stage, or "done")
	PipelineRuns *prometheus.CounterVec
	// StageSeconds measures time spent in each pipeline stage.
	StageSeconds *prometheus.HistogramVec
	// RemoteRetries counts rate-limit retries of remote calls.
	RemoteRetries prometheus.Counter
	// DatasetSkipped is the number of human edits skipped by the last dataset build.
	// Labels: reason (missing_parent, no_root, cycle)
	DatasetSkipped *prometheus.GaugeVec
}

// New registers all collectors, plus Go runtime and process collectors, in a
// new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Finished pipeline runs by outcome and final stage",
		}, []string{"outcome", "stage"}),
		StageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 40, 60, 90},
		}, []string{"stage"}),
		RemoteRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_retries_total",
			Help:      "Remote calls retried after a rate-limit response",
		}),
		DatasetSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_skipped",
			Help:      "Human edits skipped by the last preference dataset build",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.PipelineRuns,
		m.StageSeconds,
		m.RemoteRetries,
		m.DatasetSkipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records the duration of one stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished counts a finished run.
func (m *Metrics) RunFinished(outcome, stage string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome, stage).Inc()
}

// SetDatasetSkipped records skip counts from a dataset build.
func (m *Metrics) SetDatasetSkipped(reason string, n int) {
	if m == nil {
		return
	}
	m.DatasetSkipped.WithLabelValues(reason).Set(float64(n))
}

// RetryCounter returns the retry counter, or nil for a nil *Metrics.
func (m *Metrics) RetryCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.RemoteRetries
}
