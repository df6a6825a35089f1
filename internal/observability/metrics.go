// Package observability exposes Prometheus metrics and OpenTelemetry tracing
// for evaluation runs.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry. A nil *Metrics records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	gatherer prometheus.Gatherer

	// RunsTotal counts evaluation runs. Labels: status (ok|report_error|error)
	RunsTotal *prometheus.CounterVec

	// RunDuration measures whole runs in seconds.
	RunDuration prometheus.Histogram

	// SamplesTotal counts ingested samples.
	SamplesTotal prometheus.Counter

	// SamplesExcluded counts samples left out of ranking metrics.
	SamplesExcluded prometheus.Counter

	// MetricDuration measures one metric computation. Labels: metric
	MetricDuration *prometheus.HistogramVec

	// MetricErrors counts failed metric computations. Labels: metric
	MetricErrors *prometheus.CounterVec

	// BusPublish counts event publishes. Labels: topic, status (success|error)
	BusPublish *prometheus.CounterVec

	// BusPublishDuration measures publish latency. Labels: topic
	BusPublishDuration *prometheus.HistogramVec

	// HTTPRequests counts API requests. Labels: method, path, status_code
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration measures API latency. Labels: method, path
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPInFlight tracks requests being served.
	HTTPInFlight prometheus.Gauge
}

// NewMetrics registers all collectors with reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gauge_runs_total",
				Help: "Total number of evaluation runs by status",
			},
			[]string{"status"},
		),

		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gauge_run_duration_seconds",
				Help:    "Duration of evaluation runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),

		SamplesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gauge_samples_total",
				Help: "Total number of samples evaluated",
			},
		),

		SamplesExcluded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gauge_samples_excluded_total",
				Help: "Total number of samples excluded from ranking metrics",
			},
		),

		MetricDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gauge_metric_duration_seconds",
				Help:    "Duration of a single metric computation in seconds",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"metric"},
		),

		MetricErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gauge_metric_errors_total",
				Help: "Total number of failed metric computations",
			},
			[]string{"metric"},
		),

		BusPublish: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gauge_bus_publish_total",
				Help: "Total number of bus publishes by topic and status",
			},
			[]string{"topic", "status"},
		),

		BusPublishDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gauge_bus_publish_duration_seconds",
				Help:    "Duration of bus publishes in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"topic"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gauge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gauge_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "path"},
		),

		HTTPInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "gauge_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// Run outcome labels.
const (
	RunOK          = "ok"
	RunReportError = "report_error"
	RunError       = "error"
)

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, d time.Duration, samples, excluded int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.SamplesTotal.Add(float64(samples))
	m.SamplesExcluded.Add(float64(excluded))
}

// ObserveMetric records one metric computation. It satisfies the
// dispatcher's Observer interface.
func (m *Metrics) ObserveMetric(_ context.Context, name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.MetricDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.MetricErrors.WithLabelValues(name).Inc()
	}
}

// RecordBusPublish records one publish. It satisfies bus.PublishRecorder.
func (m *Metrics) RecordBusPublish(topic string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BusPublish.WithLabelValues(topic, status).Inc()
	m.BusPublishDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(method, path string, code int, d time.Duration) {
	if m == nil {
		return
	}
	path = normalizePath(path)
	m.HTTPRequests.WithLabelValues(method, path, statusCode(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
