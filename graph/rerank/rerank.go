// Package rerank provides the reranking capability used by rerank
// nodes in a RAG workflow DAG, reordering a retriever's candidate set
// before it reaches the LLM.
package rerank

import "context"

// RankedDocument is one candidate passed into or out of a Reranker.
type RankedDocument struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]string
}

// RerankOptions bounds a rerank call.
type RerankOptions struct {
	// TopK truncates the result to the best TopK documents. Zero means
	// no truncation.
	TopK int
}

// Reranker reorders docs by relevance to query, most relevant first.
// Implementations must be stable on ties, preserving the original
// relative order of equally-scored documents.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []RankedDocument, opts RerankOptions) ([]RankedDocument, error)
}
