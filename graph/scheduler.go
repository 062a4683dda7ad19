package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SummaryError is a compact, serializable view of one node's terminal
// error, used in Result.Summary.
type SummaryError struct {
	NodeID string
	Kind   ErrorKind
	Msg    string
}

// Summary is the execution-level outcome of a single Engine.Execute call.
type Summary struct {
	ExecutionID   string
	Success       bool
	DurationMs    int64
	TotalNodes    int
	NodesExecuted int
	Errors        []SummaryError
}

// Result is the full outcome of an Engine.Execute call: every node's
// result keyed by node id, every node's terminal error keyed by node id
// (nodes that succeeded or were never reached have no entry), and a
// Summary. A node never appears in both Results and Errors.
type Result struct {
	Results map[string]any
	Errors  map[string]error
	Summary Summary
}

// Engine runs DAGs. A single Engine may run many DAGs, sequentially or
// concurrently; it holds no per-execution state itself.
type Engine struct {
	base Options
}

// EngineOption configures an Engine's default Options, applied to every
// Execute call unless overridden by per-call options.
type EngineOption = Option

// NewEngine builds an Engine whose Execute calls default to opts, applied
// over defaultOptions().
func NewEngine(opts ...EngineOption) (*Engine, error) {
	base := defaultOptions()
	for _, opt := range opts {
		if err := opt(&base); err != nil {
			return nil, err
		}
	}
	return &Engine{base: base}, nil
}

// Execute validates dag and, if valid, runs it to completion against seed,
// respecting ctx's cancellation and any per-call option overrides. A
// structural DAG problem is returned synchronously, before any node runs,
// as a *Error with Kind KindDagInvalid; every other failure is reported
// through the returned *Result rather than as a second return value.
func (e *Engine) Execute(ctx context.Context, dag *DAG, seed any, opts ...Option) (*Result, error) {
	if err := dag.Validate(); err != nil {
		return nil, err
	}

	execOpts := e.base
	for _, opt := range opts {
		if err := opt(&execOpts); err != nil {
			return nil, err
		}
	}
	if execOpts.Concurrency <= 0 {
		execOpts.Concurrency = defaultConcurrency()
	}

	correlationID := uuid.NewString()
	start := time.Now()

	execCtx := ctx
	var cancel context.CancelFunc
	if execOpts.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, execOpts.Timeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	execCtx = withCorrelationID(execCtx, correlationID)

	nodes := dag.snapshot()
	ec := newExecutionContext(execCtx, dag, seed, correlationID)

	emitEvent(execOpts.Emitter, correlationID, "", EventExecutionStart, map[string]any{
		"total_nodes": len(nodes),
	})
	execOpts.Metrics.incInflight(correlationID)
	defer execOpts.Metrics.decInflight(correlationID)

	nodesExecuted := e.run(ec, nodes, execOpts, cancel)

	durationMs := time.Since(start).Milliseconds()
	results := ec.snapshotResults()
	errs := ec.snapshotErrors()

	success := true
	summaryErrors := make([]SummaryError, 0, len(errs))
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		err := errs[id]
		kind, _ := KindOf(err)
		summaryErrors = append(summaryErrors, SummaryError{NodeID: id, Kind: kind, Msg: err.Error()})
		if n, ok := nodes[id]; ok && isRequired(n, execOpts) {
			success = false
		}
	}

	summary := Summary{
		ExecutionID:   correlationID,
		Success:       success,
		DurationMs:    durationMs,
		TotalNodes:    len(nodes),
		NodesExecuted: nodesExecuted,
		Errors:        summaryErrors,
	}
	emitEvent(execOpts.Emitter, correlationID, "", EventExecutionEnd, map[string]any{
		"success": success, "duration_ms": durationMs, "nodes_executed": nodesExecuted,
	})

	return &Result{Results: results, Errors: errs, Summary: summary}, nil
}

// run drives the bounded worker pool over nodes until every reachable node
// has completed, returning the number of nodes actually dispatched.
func (e *Engine) run(ec *executionContext, nodes map[string]*Node, opts Options, cancel context.CancelFunc) int {
	remaining := make(map[string]int, len(nodes))
	for id, n := range nodes {
		remaining[id] = len(n.inputs)
	}

	ready := newNodeHeap()
	// Deterministic seed order: iterate the DAG's own insertion order.
	ordered := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].insertOrder < ordered[j].insertOrder })
	for _, n := range ordered {
		if remaining[n.ID] == 0 {
			ready.push(n)
		}
	}

	var (
		mu         sync.Mutex
		cond       = sync.NewCond(&mu)
		inFlight   int
		dispatched int
	)

	// Wake waiting workers when the execution context ends, whether from
	// an explicit cancel() (required-node failure without ContinueOnError)
	// or the engine-wide timeout expiring.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ec.ctx.Done():
			mu.Lock()
			cond.Broadcast()
			mu.Unlock()
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				for {
					if ec.ctx.Err() != nil {
						mu.Unlock()
						return
					}
					if ready.Len() > 0 {
						break
					}
					if inFlight == 0 {
						mu.Unlock()
						return
					}
					cond.Wait()
				}
				n := ready.pop()
				inFlight++
				mu.Unlock()

				outcome := runNode(ec, n, opts, opts.Metrics)

				mu.Lock()
				inFlight--
				dispatched++
				if outcome == outcomeSuccess || outcome == outcomeSkipped {
					succIDs := setKeys(n.outputs)
					sort.Strings(succIDs)
					for _, succID := range succIDs {
						remaining[succID]--
						if remaining[succID] == 0 {
							ready.push(nodes[succID])
						}
					}
				} else if isRequired(n, opts) && !opts.ContinueOnError {
					cancel()
				}
				cond.Broadcast()
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return dispatched
}
