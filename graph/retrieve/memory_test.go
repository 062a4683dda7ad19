package retrieve

import (
	"context"
	"testing"
)

func TestMemoryRetrieverConstruction(t *testing.T) {
	r := NewMemoryRetriever()
	if r == nil {
		t.Fatal("NewMemoryRetriever returned nil")
	}
	var _ Retriever = r
}

func TestMemoryRetrieverStoreAndRetrieve(t *testing.T) {
	r := NewMemoryRetriever()
	ctx := context.Background()

	res, err := r.Store(ctx, []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Content: "alpha"},
		{ID: "b", Values: []float32{0, 1, 0}, Content: "beta"},
		{ID: "c", Values: []float32{0.9, 0.1, 0}, Content: "alpha-like"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stored != 3 {
		t.Errorf("expected 3 stored, got %d", res.Stored)
	}

	matches, err := r.Retrieve(ctx, Query{Values: []float32{1, 0, 0}, TopK: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Errorf("expected closest match to be a, got %s", matches[0].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("expected matches ordered by descending score")
	}
}

func TestMemoryRetrieverFilterAndMinScore(t *testing.T) {
	r := NewMemoryRetriever()
	ctx := context.Background()

	_, _ = r.Store(ctx, []Vector{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]string{"lang": "en"}},
		{ID: "b", Values: []float32{1, 0}, Metadata: map[string]string{"lang": "fr"}},
		{ID: "c", Values: []float32{0, 1}, Metadata: map[string]string{"lang": "en"}},
	})

	matches, err := r.Retrieve(ctx, Query{
		Values: []float32{1, 0},
		TopK:   10,
		Filter: map[string]string{"lang": "en"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 filtered matches, got %d", len(matches))
	}

	matches, err = r.Retrieve(ctx, Query{Values: []float32{1, 0}, TopK: 10, MinScore: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range matches {
		if m.Score < 0.5 {
			t.Errorf("match %s scored %f below MinScore", m.ID, m.Score)
		}
	}
}

func TestMemoryRetrieverDelete(t *testing.T) {
	r := NewMemoryRetriever()
	ctx := context.Background()

	_, _ = r.Store(ctx, []Vector{{ID: "a", Values: []float32{1, 0}}})
	if err := r.Delete(ctx, []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := r.Retrieve(ctx, Query{Values: []float32{1, 0}, TopK: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected deleted vector to be gone, got %d matches", len(matches))
	}
}
