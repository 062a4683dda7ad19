package embed

import (
	"context"
	"sync"
)

// MockEmbedder is a deterministic, hash-based Embedder for tests. It
// requires no network access and produces the same vector for the same
// input text every time, so retrieval tests can assert on similarity
// ordering without a real embedding model.
type MockEmbedder struct {
	// Dim is the output vector dimensionality. NewMockEmbedder sets it to 8
	// when given a value <= 0; a MockEmbedder built without it and left at
	// zero produces empty vectors.
	Dim int

	mu    sync.Mutex
	Calls []string
}

// NewMockEmbedder creates a MockEmbedder with the given dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, chunks...)
	m.mu.Unlock()

	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = m.vectorFor(c)
	}
	return out, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// vectorFor derives a stable pseudo-embedding from text's bytes. Each
// component hashes the whole text, so equal texts get equal vectors but
// texts sharing a prefix do not get similar ones.
func (m *MockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.Dim)
	for i := range v {
		var acc uint32 = 2166136261 // FNV offset basis
		for j, b := range []byte(text) {
			acc ^= uint32(b) + uint32(i) + uint32(j)
			acc *= 16777619 // FNV prime
		}
		v[i] = float32(acc%1000) / 1000
	}
	return v
}

// CallCount reports how many chunks have been embedded across all calls.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
