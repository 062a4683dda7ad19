package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible instrumentation for DAG execution,
// namespaced "ragflow_graph_".
//
// Metrics exposed:
//
//  1. executions_total (counter): node executions completed (one per node
//     per Execute call, however many attempts it took), labeled by node_id
//     and outcome (success/failure; a skipped optional node counts as
//     failure).
//  2. node_duration_ms (histogram): node execution duration across all
//     of its attempts, labeled by node_id.
//  3. retries_total (counter): retry attempts performed, labeled by
//     node_id.
//  4. inflight_nodes (gauge): nodes currently executing, labeled by
//     execution_id.
//  5. circuit_state (gauge): current circuit breaker state (0=closed,
//     1=open, 2=half-open), labeled by node_id.
//
// Thread-safe: every update goes through a prometheus collector, which
// handles its own internal synchronization.
type Metrics struct {
	executions   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	inflight     *prometheus.GaugeVec
	circuit      *prometheus.GaugeVec
}

// NewMetrics creates and registers the graph execution metrics with reg. Use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions across cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragflow",
			Subsystem: "graph",
			Name:      "executions_total",
			Help:      "Total node executions completed, by node and outcome.",
		}, []string{"node_id", "outcome"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragflow",
			Subsystem: "graph",
			Name:      "node_duration_ms",
			Help:      "Node execution duration across all attempts, in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"node_id"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragflow",
			Subsystem: "graph",
			Name:      "retries_total",
			Help:      "Total retry attempts performed, by node.",
		}, []string{"node_id"}),
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ragflow",
			Subsystem: "graph",
			Name:      "inflight_nodes",
			Help:      "Nodes currently executing, by execution id.",
		}, []string{"execution_id"}),
		circuit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ragflow",
			Subsystem: "graph",
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0=closed, 1=open, 2=half-open.",
		}, []string{"node_id"}),
	}
}

func (m *Metrics) observeNode(nodeID string, outcome nodeOutcome, durationMs float64, attempts int) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(nodeID, outcome.String()).Inc()
	m.nodeDuration.WithLabelValues(nodeID).Observe(durationMs)
	if attempts > 1 {
		m.retries.WithLabelValues(nodeID).Add(float64(attempts - 1))
	}
}

func (m *Metrics) incInflight(executionID string) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(executionID).Inc()
}

func (m *Metrics) decInflight(executionID string) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(executionID).Dec()
}

func (m *Metrics) setCircuitState(nodeID string, state CircuitState) {
	if m == nil {
		return
	}
	m.circuit.WithLabelValues(nodeID).Set(float64(state))
}
