package graph

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// RunFunc is the work a Node performs. ctx carries the per-attempt deadline
// and the execution's correlation id; in carries either the seed value
// (source nodes) or a map of predecessor id to predecessor result.
type RunFunc func(ctx context.Context, in NodeInput) (any, error)

// NodeInput is the argument passed to a Node's RunFunc. Exactly one of the
// two shapes applies: a node with no predecessors receives the execution's
// seed value; a node with predecessors receives a map keyed by predecessor
// id. IsSeed distinguishes "seed is nil" from "no predecessor produced nil".
type NodeInput struct {
	IsSeed bool
	Seed   any
	Deps   map[string]any
}

// Value looks up a predecessor's result by id. Returns false for seed
// inputs and for ids with no recorded result (e.g. an optional predecessor
// that was skipped).
func (n NodeInput) Value(id string) (any, bool) {
	if n.IsSeed {
		return nil, false
	}
	v, ok := n.Deps[id]
	return v, ok
}

// NodeMetricsSnapshot is a point-in-time, race-free copy of a Node's
// accumulated execution metrics.
type NodeMetricsSnapshot struct {
	Executions     uint64
	Successes      uint64
	Failures       uint64
	Retries        uint64
	LastDurationMs int64
	AvgDurationMs  float64
}

// nodeMetrics holds atomically-updated counters. Nodes can be entered by
// concurrent executions of the same DAG, so every field is an atomic.
type nodeMetrics struct {
	executions      atomic.Uint64
	successes       atomic.Uint64
	failures        atomic.Uint64
	retries         atomic.Uint64
	lastDurationMs  atomic.Int64
	totalDurationMs atomic.Uint64
}

func (m *nodeMetrics) recordAttempt(d time.Duration, attempts int, ok bool) {
	m.executions.Add(1)
	m.retries.Add(uint64(attempts - 1))
	m.lastDurationMs.Store(d.Milliseconds())
	m.totalDurationMs.Add(uint64(d.Milliseconds()))
	if ok {
		m.successes.Add(1)
	} else {
		m.failures.Add(1)
	}
}

func (m *nodeMetrics) snapshot() NodeMetricsSnapshot {
	execs := m.executions.Load()
	total := m.totalDurationMs.Load()
	var avg float64
	if execs > 0 {
		avg = float64(total) / float64(execs)
	}
	return NodeMetricsSnapshot{
		Executions:     execs,
		Successes:      m.successes.Load(),
		Failures:       m.failures.Load(),
		Retries:        m.retries.Load(),
		LastDurationMs: m.lastDurationMs.Load(),
		AvgDurationMs:  avg,
	}
}

// Node is a single unit of work in a DAG: an id, a run function, and the
// scheduling metadata that governs how and when it executes.
type Node struct {
	ID          string
	Run         RunFunc
	Timeout     time.Duration
	Retries     int
	Priority    int
	Optional    bool
	RetryPolicy *RetryPolicy
	Tags        []string
	Metadata    map[string]any

	inputs      map[string]struct{}
	outputs     map[string]struct{}
	insertOrder int
	metrics     nodeMetrics
}

// Metrics returns a snapshot of this node's accumulated execution counters.
func (n *Node) Metrics() NodeMetricsSnapshot { return n.metrics.snapshot() }

// Inputs returns the ids of this node's direct predecessors, in no
// particular order.
func (n *Node) Inputs() []string { return setKeys(n.inputs) }

// Outputs returns the ids of this node's direct successors, in no
// particular order.
func (n *Node) Outputs() []string { return setKeys(n.outputs) }

func setKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// NodeOption configures optional Node fields at construction time, in the
// same functional-options idiom used throughout this module.
type NodeOption func(*Node)

// NodeTimeout sets the per-attempt wall-clock deadline for this node. A
// timeout of 0 is honored literally: the node fails immediately with
// KindNodeTimeout without its RunFunc ever being invoked. Omit this option
// to use the package default (defaultNodeTimeout).
func NodeTimeout(d time.Duration) NodeOption {
	return func(n *Node) { n.Timeout = d }
}

// NodeRetries sets the maximum number of retry attempts (not counting the
// initial attempt) for this node, overriding the governing RetryPolicy's
// own configured MaxRetries. A value of 0 leaves the policy's MaxRetries in
// effect, and a node that no RetryPolicy governs is never retried.
func NodeRetries(retries int) NodeOption {
	return func(n *Node) { n.Retries = retries }
}

// NodePriority sets the tie-breaking priority used by the scheduler's ready
// queue: higher values are admitted first among otherwise-ready nodes.
func NodePriority(p int) NodeOption {
	return func(n *Node) { n.Priority = p }
}

// Optional marks a node as eligible for graceful degradation: when the
// engine runs with GracefulDegradation enabled, a failure of this node is
// swallowed rather than propagated, and its successors proceed without its
// result.
func Optional() NodeOption {
	return func(n *Node) { n.Optional = true }
}

// NodeRetryPolicy attaches a node-specific RetryPolicy, overriding whatever
// default policy the engine would otherwise apply.
func NodeRetryPolicy(p *RetryPolicy) NodeOption {
	return func(n *Node) { n.RetryPolicy = p }
}

// NodeTags attaches free-form labels to a node. They are stored on the Node
// only: the engine does not read them, and they appear in no event or
// metric.
func NodeTags(tags ...string) NodeOption {
	return func(n *Node) { n.Tags = append([]string(nil), tags...) }
}

// NodeMetadata attaches arbitrary metadata to a node.
func NodeMetadata(md map[string]any) NodeOption {
	return func(n *Node) { n.Metadata = md }
}

const defaultNodeTimeoutMs = 30000

// defaultNodeTimeout returns the package default per-attempt node timeout:
// 30s, overridable via the RAG_NODE_TIMEOUT_MS environment variable.
func defaultNodeTimeout() time.Duration {
	if v := os.Getenv("RAG_NODE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultNodeTimeoutMs * time.Millisecond
}
