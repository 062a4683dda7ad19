package embed

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedder implements Embedder using OpenAI's embeddings endpoint.
type OpenAIEmbedder struct {
	client    openaisdk.Client
	modelName string
}

// NewOpenAIEmbedder creates an OpenAIEmbedder. An empty modelName uses
// "text-embedding-3-small".
func NewOpenAIEmbedder(apiKey, modelName string) *OpenAIEmbedder {
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		client:    openaisdk.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.modelName),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: chunks,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embed: openai embeddings request: %w", err)
	}
	if len(resp.Data) != len(chunks) {
		return nil, fmt.Errorf("embed: openai returned %d embeddings for %d inputs", len(resp.Data), len(chunks))
	}

	out := make([][]float32, len(chunks))
	for i, d := range resp.Data {
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
