package tool

import (
	"context"
	"fmt"

	"github.com/ragflow-go/ragflow/graph/embed"
	"github.com/ragflow-go/ragflow/graph/retrieve"
)

// RetrieverTool exposes a retrieve.Retriever as an LLM-callable tool, so a
// generation node can let the model decide when it needs another lookup
// instead of always running retrieval up front in the DAG.
//
// Input Parameters:
//   - query: natural-language text to embed and search for (required)
//   - top_k: maximum number of matches to return (defaults to 5)
//
// Output:
//   - matches: a list of {id, content, score, metadata} maps
type RetrieverTool struct {
	name      string
	embedder  embed.Embedder
	retriever retrieve.Retriever
}

// NewRetrieverTool builds a RetrieverTool named name that embeds queries
// with embedder and searches retriever for matches.
func NewRetrieverTool(name string, embedder embed.Embedder, retriever retrieve.Retriever) *RetrieverTool {
	return &RetrieverTool{name: name, embedder: embedder, retriever: retriever}
}

// Name returns the tool identifier.
func (t *RetrieverTool) Name() string {
	return t.name
}

// Call embeds the query parameter and returns the retriever's top matches.
func (t *RetrieverTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	query, ok := input["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("query parameter required (string)")
	}

	topK := 5
	if v, ok := input["top_k"].(int); ok && v > 0 {
		topK = v
	} else if v, ok := input["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	vec, err := t.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := t.retriever.Retrieve(ctx, retrieve.Query{Values: vec, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("retrieving matches: %w", err)
	}

	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		out[i] = map[string]interface{}{
			"id":       m.ID,
			"content":  m.Content,
			"score":    m.Score,
			"metadata": m.Metadata,
		}
	}

	return map[string]interface{}{"matches": out}, nil
}
