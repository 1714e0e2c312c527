package retrieval

import (
	"context"
	"fmt"

	"github.com/sandevgo/docqa/internal/core"
)

// Retriever embeds a query and asks the index for its nearest passages.
type Retriever struct {
	embedder core.Embedder
	index    core.Index
}

func NewRetriever(embedder core.Embedder, index core.Index) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns at most k candidates in index order. Failures of the
// embedder or the index wrap core.ErrIndexUnavailable and are not retried.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]core.ScoredCandidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("retrieve: k must be positive, got %d", k)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrIndexUnavailable, err)
	}

	candidates, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", core.ErrIndexUnavailable, err)
	}

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
