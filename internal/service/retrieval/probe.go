package retrieval

import "context"

// Probe runs retrieval and filtering without a model call, exposing every
// decision. It backs the search command and the search tool.
type Probe struct {
	retriever *Retriever
	filter    *Filter
	k         int
	threshold float64
}

func NewProbe(retriever *Retriever, filter *Filter, k int, threshold float64) *Probe {
	return &Probe{
		retriever: retriever,
		filter:    filter,
		k:         k,
		threshold: threshold,
	}
}

// Search returns the decision for each of the k nearest candidates, nearest first.
// k <= 0 uses the configured default.
func (p *Probe) Search(ctx context.Context, query string, k int) ([]RetentionDecision, error) {
	if k <= 0 {
		k = p.k
	}
	candidates, err := p.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return p.filter.Decide(ctx, candidates, p.threshold), nil
}
