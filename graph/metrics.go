package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus instrumentation for graph execution.
//
// Metrics exposed (all namespaced "researchgraph"):
//
//  1. runs_total (counter): Completed runs by final status.
//     Labels: status (success/error).
//
//  2. node_latency_ms (histogram): Node execution duration in
//     milliseconds, from dispatch to completion.
//     Labels: node_id, status (success/error).
//     Buckets: 1ms to 60s, tuned for LLM-backed nodes.
//
//  3. fan_out_width (histogram): Number of parallel branches spawned
//     per fan-out. Use: watch query-plan sizes and concurrency levels.
//
//  4. external_failures_total (counter): Upstream service failures
//     recovered or surfaced by nodes.
//     Labels: service, op.
//
// A nil *Metrics is valid everywhere the engine uses one; recording on
// nil is a no-op, so instrumentation stays optional.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := NewMetrics(registry)
//	eng := New[MyState, MyConfig](store, emitter, metrics, opts)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	runs             *prometheus.CounterVec
	nodeLatency      *prometheus.HistogramVec
	fanOutWidth      prometheus.Histogram
	externalFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all graph execution metrics with
// the provided Prometheus registry. A nil registry uses the global
// default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researchgraph",
			Name:      "runs_total",
			Help:      "Completed workflow runs by final status",
		}, []string{"status"}),

		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "researchgraph",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds (from dispatch to completion)",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 15000, 60000},
		}, []string{"node_id", "status"}),

		fanOutWidth: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "researchgraph",
			Name:      "fan_out_width",
			Help:      "Number of parallel branches spawned per fan-out",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),

		externalFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researchgraph",
			Name:      "external_failures_total",
			Help:      "Upstream service failures recovered or surfaced by nodes",
		}, []string{"service", "op"}),
	}
}

// RecordExternalFailure counts one upstream service failure. Called by
// node implementations when an external call fails (whether or not the
// node recovers it).
func (m *Metrics) RecordExternalFailure(service, op string) {
	if m == nil {
		return
	}
	m.externalFailures.WithLabelValues(service, op).Inc()
}

func (m *Metrics) recordRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) recordNode(nodeID string, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) recordFanOut(width int) {
	if m == nil {
		return
	}
	m.fanOutWidth.Observe(float64(width))
}
