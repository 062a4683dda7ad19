package rerank

import (
	"context"
	"sort"
)

// PassthroughReranker returns docs unchanged (beyond TopK truncation),
// for pipelines that want the retriever's own ordering preserved.
type PassthroughReranker struct{}

func (PassthroughReranker) Rerank(ctx context.Context, query string, docs []RankedDocument, opts RerankOptions) ([]RankedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return truncate(docs, opts.TopK), nil
}

// ScoreFunc computes a relevance score for doc against query. Higher
// scores sort first.
type ScoreFunc func(query string, doc RankedDocument) float64

// ScoreReranker resorts documents by a caller-supplied ScoreFunc,
// stable on ties so equally-scored documents keep their retrieval
// order.
type ScoreReranker struct {
	Score ScoreFunc
}

// NewScoreReranker creates a ScoreReranker using fn to rank candidates.
func NewScoreReranker(fn ScoreFunc) *ScoreReranker {
	return &ScoreReranker{Score: fn}
}

func (r *ScoreReranker) Rerank(ctx context.Context, query string, docs []RankedDocument, opts RerankOptions) ([]RankedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]RankedDocument, len(docs))
	copy(scored, docs)
	for i := range scored {
		scored[i].Score = r.Score(query, scored[i])
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return truncate(scored, opts.TopK), nil
}

func truncate(docs []RankedDocument, topK int) []RankedDocument {
	if topK > 0 && topK < len(docs) {
		return docs[:topK]
	}
	return docs
}
