package embed

import (
	"context"
	"reflect"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder(4)
	ctx := context.Background()

	v1, err := m.EmbedQuery(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := m.EmbedQuery(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("expected identical vectors for identical input, got %v and %v", v1, v2)
	}
	if len(v1) != 4 {
		t.Errorf("expected dim 4, got %d", len(v1))
	}
}

func TestMockEmbedderDistinctInputs(t *testing.T) {
	m := NewMockEmbedder(4)
	vecs, err := m.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("expected distinct vectors for distinct inputs")
	}
	if m.CallCount() != 2 {
		t.Errorf("expected 2 recorded calls, got %d", m.CallCount())
	}
}
