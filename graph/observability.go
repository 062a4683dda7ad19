package graph

import (
	"github.com/ragflow-go/ragflow/graph/emit"
)

// Event message names emitted during execution. Meta carries event-specific
// detail: EventCircuitChange always carries "from", "to", and "reason"
// ("threshold", "reset-timeout", "half-open-success", or
// "half-open-failure"); others carry duration_ms/attempts/error as
// applicable.
const (
	EventExecutionStart = "dag.execution.start"
	EventExecutionEnd   = "dag.execution.end"
	EventNodeStart      = "dag.node.start"
	EventNodeEnd        = "dag.node.end"
	EventRetryAttempt   = "retry.attempt"
	EventCircuitChange  = "circuit.state.change"
)

func emitEvent(e emit.Emitter, correlationID string, nodeID string, msg string, meta map[string]any) {
	if e == nil {
		return
	}
	e.Emit(emit.Event{
		RunID:  correlationID,
		NodeID: nodeID,
		Msg:    msg,
		Meta:   meta,
	})
}
