package graph

import (
	"context"
	"time"
)

// nodeOutcome is the terminal disposition of one node's execution within a
// single Execute call.
type nodeOutcome int

const (
	outcomeSuccess nodeOutcome = iota
	outcomeFailure
	outcomeSkipped
)

func (o nodeOutcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeFailure:
		return "failure"
	case outcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// governingPolicy resolves the RetryPolicy that applies to n under opts: a
// node-specific policy always wins; otherwise the engine's default policy
// applies only when the engine has retry enabled.
func governingPolicy(n *Node, opts Options) *RetryPolicy {
	if n.RetryPolicy != nil {
		return n.RetryPolicy
	}
	if opts.RetryFailedNodes && opts.DefaultRetryPolicy != nil {
		return opts.DefaultRetryPolicy
	}
	return nil
}

// skippable reports whether a failure of n should be swallowed under
// graceful degradation: n must be Optional, degradation must be enabled,
// and n must not have been explicitly promoted back to required via
// WithRequiredNodes.
func skippable(n *Node, opts Options) bool {
	if !n.Optional || !opts.GracefulDegradation {
		return false
	}
	if opts.RequiredNodes != nil {
		if _, required := opts.RequiredNodes[n.ID]; required {
			return false
		}
	}
	return true
}

// isRequired reports whether a failure of n should count toward overall
// execution failure: every non-optional node is required by default, and
// WithRequiredNodes can promote an otherwise-optional node to required.
func isRequired(n *Node, opts Options) bool {
	if !n.Optional {
		return true
	}
	if opts.RequiredNodes != nil {
		_, ok := opts.RequiredNodes[n.ID]
		return ok
	}
	return false
}

// runNode executes one node to completion (including any retries its
// governing policy grants it), recording its result or error into ec and
// reporting observability events and metrics. It never returns an error
// directly: failures are communicated through the returned outcome and
// through ec's error map.
func runNode(ec *executionContext, n *Node, opts Options, metrics *Metrics) nodeOutcome {
	if ec.ctx.Err() != nil {
		ec.setError(n.ID, &Error{Kind: KindCancelled, NodeID: n.ID, Cause: ec.ctx.Err(),
			Message: "execution cancelled before node started"})
		return outcomeFailure
	}

	in := ec.buildInput(n)
	start := time.Now()

	emitEvent(opts.Emitter, ec.correlationID, n.ID, EventNodeStart, nil)

	attemptFn := func(ctx context.Context) (any, error) {
		return runOnceWithTimeout(ctx, n, in)
	}

	policy := governingPolicy(n, opts)

	var (
		val      any
		err      error
		attempts = 1
	)
	if policy != nil {
		runCtx := withRetryObserver(ec.ctx, retryObserver{
			onRetry: func(attempt int, delay time.Duration, cause error) {
				emitEvent(opts.Emitter, ec.correlationID, n.ID, EventRetryAttempt, map[string]any{
					"attempt": attempt, "delay_ms": delay.Milliseconds(), "error": cause.Error(),
				})
			},
			onCircuitChange: func(from, to CircuitState, reason string) {
				metrics.setCircuitState(n.ID, to)
				emitEvent(opts.Emitter, ec.correlationID, n.ID, EventCircuitChange, map[string]any{
					"from": from.String(), "to": to.String(), "reason": reason,
				})
			},
		})
		val, attempts, err = policy.Execute(runCtx, n.Retries, attemptFn)
	} else {
		val, err = attemptFn(ec.ctx)
	}

	duration := time.Since(start)
	n.metrics.recordAttempt(duration, attempts, err == nil)
	metrics.observeNode(n.ID, outcomeForErr(err), float64(duration.Milliseconds()), attempts)

	if err == nil {
		ec.setResult(n.ID, val)
		emitEvent(opts.Emitter, ec.correlationID, n.ID, EventNodeEnd, map[string]any{
			"outcome": outcomeSuccess.String(), "duration_ms": duration.Milliseconds(), "attempts": attempts,
		})
		return outcomeSuccess
	}

	if skippable(n, opts) {
		emitEvent(opts.Emitter, ec.correlationID, n.ID, EventNodeEnd, map[string]any{
			"outcome": outcomeSkipped.String(), "duration_ms": duration.Milliseconds(),
			"attempts": attempts, "error": err.Error(),
		})
		return outcomeSkipped
	}

	ec.setError(n.ID, err)
	emitEvent(opts.Emitter, ec.correlationID, n.ID, EventNodeEnd, map[string]any{
		"outcome": outcomeFailure.String(), "duration_ms": duration.Milliseconds(),
		"attempts": attempts, "error": err.Error(),
	})
	return outcomeFailure
}

// outcomeForErr maps an attempt's error (nil or not) to the outcome label
// used for metrics; it never reports "skipped" since that decision is made
// by the caller after classification.
func outcomeForErr(err error) nodeOutcome {
	if err == nil {
		return outcomeSuccess
	}
	return outcomeFailure
}

// runOnceWithTimeout invokes n.Run bounded by n.Timeout. A zero Timeout
// fails immediately with KindNodeTimeout without invoking Run at all,
// matching the boundary behavior for an explicitly-zero node timeout.
func runOnceWithTimeout(ctx context.Context, n *Node, in NodeInput) (any, error) {
	if n.Timeout == 0 {
		return nil, &Error{Kind: KindNodeTimeout, NodeID: n.ID, Attempts: 1,
			Message: "node timeout is zero"}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	type result struct {
		val any
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := n.Run(attemptCtx, in)
		done <- result{val, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && attemptCtx.Err() == context.DeadlineExceeded {
			if ctx.Err() != nil {
				return nil, &Error{Kind: KindCancelled, NodeID: n.ID, Cause: r.err,
					Message: "execution cancelled during node run"}
			}
			return nil, &Error{Kind: KindNodeTimeout, NodeID: n.ID, Cause: r.err,
				Message: "node exceeded its timeout"}
		}
		return r.val, r.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindCancelled, NodeID: n.ID, Cause: ctx.Err(),
				Message: "execution cancelled during node run"}
		}
		return nil, &Error{Kind: KindNodeTimeout, NodeID: n.ID,
			Message: "node exceeded its timeout"}
	}
}
