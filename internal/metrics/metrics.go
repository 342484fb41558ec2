// Package metrics exposes the simulator's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbansense/canopysim/pkg/sim"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	snapshots    *prometheus.CounterVec
	genDuration  prometheus.Histogram
	canopyStatus *prometheus.GaugeVec
	sinkErrors   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopysim_snapshots_generated_total",
			Help: "Snapshots generated per site.",
		}, []string{"site"}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canopysim_generation_duration_seconds",
			Help:    "Time spent generating one snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		canopyStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "canopysim_canopy_status",
			Help: "Canopies per status in the latest snapshot of each site.",
		}, []string{"site", "status"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopysim_sink_errors_total",
			Help: "Publish failures per sink.",
		}, []string{"sink"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopysim_http_requests_total",
			Help: "HTTP requests by route template and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.snapshots,
		m.genDuration,
		m.canopyStatus,
		m.sinkErrors,
		m.httpRequests,
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSnapshot records one generation for site.
func (m *Metrics) ObserveSnapshot(site string, s *sim.Snapshot, took time.Duration) {
	m.snapshots.WithLabelValues(site).Inc()
	m.genDuration.Observe(took.Seconds())
	for status, n := range s.StatusCounts() {
		m.canopyStatus.WithLabelValues(site, string(status)).Set(float64(n))
	}
}

// SinkError counts a failed publish.
func (m *Metrics) SinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
