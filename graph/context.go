package graph

import (
	"context"
	"sync"
)

type contextKey int

const correlationIDKey contextKey = iota

// CorrelationID returns the correlation id of the execution ctx belongs to,
// or "" if ctx was not derived from an Engine.Execute call.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func withCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// executionContext holds the mutable state shared by every node running as
// part of one Engine.Execute call: the results produced so far, the errors
// recorded so far, and the cancellable context workers observe.
type executionContext struct {
	dag  *DAG
	seed any

	ctx    context.Context
	cancel context.CancelFunc

	correlationID string

	mu      sync.RWMutex
	results map[string]any
	errors  map[string]error
}

func newExecutionContext(ctx context.Context, dag *DAG, seed any, correlationID string) *executionContext {
	return &executionContext{
		dag:           dag,
		seed:          seed,
		ctx:           ctx,
		correlationID: correlationID,
		results:       make(map[string]any),
		errors:        make(map[string]error),
	}
}

func (ec *executionContext) setResult(id string, val any) {
	ec.mu.Lock()
	ec.results[id] = val
	ec.mu.Unlock()
}

func (ec *executionContext) setError(id string, err error) {
	ec.mu.Lock()
	ec.errors[id] = err
	ec.mu.Unlock()
}

func (ec *executionContext) buildInput(n *Node) NodeInput {
	if len(n.inputs) == 0 {
		return NodeInput{IsSeed: true, Seed: ec.seed}
	}
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	deps := make(map[string]any, len(n.inputs))
	for id := range n.inputs {
		if v, ok := ec.results[id]; ok {
			deps[id] = v
		}
	}
	return NodeInput{Deps: deps}
}

// snapshotResults returns a defensive copy of the results map accumulated so
// far.
func (ec *executionContext) snapshotResults() map[string]any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make(map[string]any, len(ec.results))
	for k, v := range ec.results {
		out[k] = v
	}
	return out
}

// snapshotErrors returns a defensive copy of the errors map accumulated so
// far.
func (ec *executionContext) snapshotErrors() map[string]error {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make(map[string]error, len(ec.errors))
	for k, v := range ec.errors {
		out[k] = v
	}
	return out
}
