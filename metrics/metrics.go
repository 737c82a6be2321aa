// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline. All recording methods are nil-safe so components can run
// uninstrumented in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	analyses          *prometheus.CounterVec
	trackerErrors     *prometheus.CounterVec
	validationRepairs *prometheus.CounterVec
	llmDuration       prometheus.Histogram
}

// New creates and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuesense_analyses_total",
			Help: "Completed analysis requests by outcome.",
		}, []string{"status"}),
		trackerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuesense_tracker_errors_total",
			Help: "Tracker operation failures by operation and kind.",
		}, []string{"op", "kind"}),
		validationRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuesense_validation_repairs_total",
			Help: "Response validator field repairs by field.",
		}, []string{"field"}),
		llmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "issuesense_llm_request_seconds",
			Help:    "Generative endpoint request duration.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
	}

	m.registry.MustRegister(m.analyses, m.trackerErrors, m.validationRepairs, m.llmDuration)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAnalysis counts a completed analysis by status ("success" or
// "failed").
func (m *Metrics) RecordAnalysis(status string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
}

// RecordTrackerError counts a classified tracker failure.
func (m *Metrics) RecordTrackerError(op, kind string) {
	if m == nil {
		return
	}
	m.trackerErrors.WithLabelValues(op, kind).Inc()
}

// RecordRepair counts a validator field repair.
func (m *Metrics) RecordRepair(field string) {
	if m == nil {
		return
	}
	m.validationRepairs.WithLabelValues(field).Inc()
}

// ObserveLLMDuration records a generative endpoint round trip.
func (m *Metrics) ObserveLLMDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.Observe(d.Seconds())
}
