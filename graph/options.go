package graph

import (
	"os"
	"strconv"
	"time"

	"github.com/ragflow-go/ragflow/graph/emit"
)

// Options controls a single Execute call: concurrency bound, global
// deadline, failure-handling semantics, and the default retry/observability
// wiring applied to nodes that don't carry their own.
type Options struct {
	Concurrency         int
	Timeout             time.Duration
	ContinueOnError     bool
	GracefulDegradation bool
	RequiredNodes       map[string]struct{}
	RetryFailedNodes    bool
	DefaultRetryPolicy  *RetryPolicy
	Emitter             emit.Emitter
	Metrics             *Metrics
}

// Option configures Options in the functional-options idiom. It returns an
// error so a future option can reject an incompatible combination without
// breaking the signature.
type Option func(*Options) error

// WithConcurrency bounds the number of nodes executing at once. Values <= 0
// fall back to defaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *Options) error { o.Concurrency = n; return nil }
}

// WithGlobalTimeout bounds the entire execution's wall-clock duration. Zero
// (the default) means no engine-wide deadline beyond the caller's context.
func WithGlobalTimeout(d time.Duration) Option {
	return func(o *Options) error { o.Timeout = d; return nil }
}

// WithContinueOnError controls whether a required node's failure cancels
// the rest of the execution (false, the default) or only stalls that
// node's downstream successors while unrelated branches run to completion
// (true).
func WithContinueOnError(v bool) Option {
	return func(o *Options) error { o.ContinueOnError = v; return nil }
}

// WithGracefulDegradation enables swallowing a failure from a node marked
// Optional, letting its successors proceed without its result instead of
// counting it toward execution failure.
func WithGracefulDegradation(v bool) Option {
	return func(o *Options) error { o.GracefulDegradation = v; return nil }
}

// WithRequiredNodes marks additional node ids as required regardless of
// their Optional flag: only failures of required (or non-optional) nodes
// mark the overall execution as failed.
func WithRequiredNodes(ids ...string) Option {
	return func(o *Options) error {
		if o.RequiredNodes == nil {
			o.RequiredNodes = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			o.RequiredNodes[id] = struct{}{}
		}
		return nil
	}
}

// WithRetryFailedNodes enables the engine's default retry policy for any
// node that doesn't carry its own NodeRetryPolicy.
func WithRetryFailedNodes(v bool) Option {
	return func(o *Options) error { o.RetryFailedNodes = v; return nil }
}

// WithDefaultRetryPolicy sets the RetryPolicy used by WithRetryFailedNodes
// for nodes that don't specify their own.
func WithDefaultRetryPolicy(p *RetryPolicy) Option {
	return func(o *Options) error { o.DefaultRetryPolicy = p; return nil }
}

// WithEmitter sets the observability sink for execution and node events.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) error { o.Emitter = e; return nil }
}

// WithMetrics attaches a Prometheus-backed Metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) error { o.Metrics = m; return nil }
}

func defaultOptions() Options {
	return Options{
		Concurrency: defaultConcurrency(),
		Emitter:     emit.NewNullEmitter(),
	}
}

// defaultConcurrency returns the package default worker pool size: 5,
// overridable via the RAG_MAX_CONCURRENCY environment variable.
func defaultConcurrency() int {
	if v := os.Getenv("RAG_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 5
}
