// Package graph provides the concurrent DAG execution core: a scheduler that runs
// a directed acyclic graph of user-supplied nodes with bounded concurrency, per-node
// timeouts, retry policy, circuit breaking, and partial-failure semantics.
package graph

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a DAG execution or node attempt failed. Kinds are
// stable strings rather than Go types so they round-trip cleanly through
// observability events and metric labels.
type ErrorKind string

const (
	// KindDagInvalid marks structural failures: a cycle, an unknown node
	// reference, a missing run function, or a broken inverse edge.
	KindDagInvalid ErrorKind = "DagInvalid"

	// KindNodeTimeout marks a per-attempt wall-clock deadline exceeded by the
	// node's own Timeout.
	KindNodeTimeout ErrorKind = "NodeTimeout"

	// KindOperationTimeout marks the retry policy's own overall deadline
	// exceeded, distinct from a single node's per-attempt timeout.
	KindOperationTimeout ErrorKind = "OperationTimeout"

	// KindCircuitOpen marks an attempt rejected because the governing
	// circuit breaker is open.
	KindCircuitOpen ErrorKind = "CircuitOpen"

	// KindRetryExhausted marks a node that consumed its maximum retry
	// attempts without succeeding.
	KindRetryExhausted ErrorKind = "RetryExhausted"

	// KindRetryBudgetExhausted marks a retry denied because the shared
	// sliding-window retry budget has no remaining capacity.
	KindRetryBudgetExhausted ErrorKind = "RetryBudgetExhausted"

	// KindUserError marks any error raised by user code that the governing
	// retry condition classified as non-retryable.
	KindUserError ErrorKind = "UserError"

	// KindCancelled marks a failure caused solely by execution-wide
	// cancellation or the global timeout, not by the node itself.
	KindCancelled ErrorKind = "Cancelled"
)

// Error is the structured error type returned by every fallible operation in
// this package. Kind is stable and safe to switch on; Cause preserves the
// original error for errors.Is/errors.As chains.
type Error struct {
	Kind     ErrorKind
	NodeID   string
	Message  string
	Attempts int
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.NodeID != "" {
		return fmt.Sprintf("%s: node %s: %s", e.Kind, e.NodeID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// KindOf extracts the ErrorKind carried by err, if any. Returns false for
// errors not produced by this package.
func KindOf(err error) (ErrorKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err (or something it wraps) is a *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sentinel validation errors wrapped (with DagInvalid kind) by DAG.Validate.
var (
	errDuplicateNode = errors.New("duplicate node id")
	errUnknownNode   = errors.New("reference to unknown node id")
	errSelfLoop      = errors.New("self-loop: node cannot depend on itself")
	errMissingRun    = errors.New("node has no run function")
	errBrokenEdge    = errors.New("inconsistent bidirectional edge")
	errEmptyDAG      = errors.New("dag has no nodes")
	errCycle         = errors.New("dag has a cycle")
)

// ErrInvalidRetryPolicy is returned by RetryPolicyConfig.Validate when the
// configuration cannot produce a coherent backoff schedule.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy configuration")
