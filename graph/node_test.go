package graph

import (
	"context"
	"testing"
	"time"
)

func TestNodeTimeoutDefaultsWhenUnset(t *testing.T) {
	d := NewDAG()
	n, err := d.AddNode("a", noopRun)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Timeout != defaultNodeTimeout() {
		t.Errorf("expected default timeout %v, got %v", defaultNodeTimeout(), n.Timeout)
	}
}

func TestNodeTimeoutExplicitZeroIsHonored(t *testing.T) {
	d := NewDAG()
	n, err := d.AddNode("a", noopRun, NodeTimeout(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Timeout != 0 {
		t.Errorf("expected explicit zero timeout to be preserved, got %v", n.Timeout)
	}
}

func TestNodeZeroTimeoutFailsWithoutInvokingRun(t *testing.T) {
	invoked := false
	run := func(ctx context.Context, in NodeInput) (any, error) {
		invoked = true
		return nil, nil
	}
	d := NewDAG()
	mustAddNode(t, d, "a", run, NodeTimeout(0))
	n, _ := d.GetNode("a")

	_, err := runOnceWithTimeout(context.Background(), n, NodeInput{IsSeed: true})
	if !IsKind(err, KindNodeTimeout) {
		t.Fatalf("expected NodeTimeout, got %v", err)
	}
	if invoked {
		t.Error("run function should not be invoked when timeout is explicitly zero")
	}
}

func TestNodeInputSeedVsDeps(t *testing.T) {
	seedIn := NodeInput{IsSeed: true, Seed: 42}
	if _, ok := seedIn.Value("anything"); ok {
		t.Error("seed input should never resolve predecessor values")
	}

	depsIn := NodeInput{Deps: map[string]any{"p": "value"}}
	v, ok := depsIn.Value("p")
	if !ok || v != "value" {
		t.Errorf("expected to resolve predecessor value, got %v, %v", v, ok)
	}
	if _, ok := depsIn.Value("missing"); ok {
		t.Error("expected missing predecessor id to resolve to false")
	}
}

func TestNodeMetricsSnapshot(t *testing.T) {
	d := NewDAG()
	mustAddNode(t, d, "a", noopRun)
	n, _ := d.GetNode("a")

	n.metrics.recordAttempt(10*time.Millisecond, 1, true)
	n.metrics.recordAttempt(20*time.Millisecond, 3, false)

	snap := n.Metrics()
	if snap.Executions != 2 {
		t.Errorf("expected 2 executions, got %d", snap.Executions)
	}
	if snap.Successes != 1 || snap.Failures != 1 {
		t.Errorf("expected 1 success and 1 failure, got %+v", snap)
	}
	if snap.Retries != 2 {
		t.Errorf("expected 2 retries recorded, got %d", snap.Retries)
	}
	if snap.LastDurationMs != 20 {
		t.Errorf("expected last duration 20ms, got %d", snap.LastDurationMs)
	}
}
