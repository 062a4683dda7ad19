// Package embed provides the embedding capability used by embed nodes
// in a RAG workflow DAG.
package embed

import "context"

// Embedder turns text into fixed-dimension vectors for storage and
// similarity search.
type Embedder interface {
	// Embed returns one vector per chunk, in the same order.
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
	// EmbedQuery embeds a single query string using the same model and
	// dimensionality as Embed, so its output is directly comparable to
	// vectors produced by Embed.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
