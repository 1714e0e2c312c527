package retrieval

import (
	"context"
	"maps"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
)

// RetentionDecision records why a candidate was kept or discarded.
type RetentionDecision struct {
	Candidate core.ScoredCandidate
	Threshold float64
	Direction core.Direction
	Kept      bool
}

// Filter keeps the candidates whose score passes the threshold in the
// configured direction. Every decision is reported to the sink.
type Filter struct {
	direction core.Direction
	sink      Sink
}

func NewFilter(direction core.Direction, sink Sink) *Filter {
	if sink == nil {
		sink = MultiSink{}
	}
	return &Filter{
		direction: direction,
		sink:      sink,
	}
}

func (f *Filter) Direction() core.Direction {
	return f.direction
}

// Filter returns the retained subsequence of candidates in their original
// order. An empty result is not an error.
func (f *Filter) Filter(ctx context.Context, candidates []core.ScoredCandidate, threshold float64) []core.ScoredCandidate {
	kept := make([]core.ScoredCandidate, 0, len(candidates))
	for _, d := range f.Decide(ctx, candidates, threshold) {
		if d.Kept {
			kept = append(kept, d.Candidate)
		}
	}
	return kept
}

// Decide returns one decision per candidate, in order, reporting each to the sink.
func (f *Filter) Decide(ctx context.Context, candidates []core.ScoredCandidate, threshold float64) []RetentionDecision {
	decisions := make([]RetentionDecision, 0, len(candidates))

	for _, c := range candidates {
		c.Metadata = maps.Clone(c.Metadata)
		decision := RetentionDecision{
			Candidate: c,
			Threshold: threshold,
			Direction: f.direction,
			Kept:      f.direction.Retains(c.Score, threshold),
		}
		f.report(ctx, decision)
		decisions = append(decisions, decision)
	}
	return decisions
}

func (f *Filter) report(ctx context.Context, d RetentionDecision) {
	defer func() {
		if r := recover(); r != nil {
			log.FromCtx(ctx).Error().Interface("panic", r).Msg("retention sink panicked")
		}
	}()
	f.sink.Report(ctx, d)
}
