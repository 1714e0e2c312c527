// Package memory is an in-process similarity index scored by cosine similarity.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sandevgo/docqa/internal/core"
)

// Index keeps every entry in memory and scans it on each query.
// Scores are cosine similarities, so higher is better.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries []core.IndexEntry
	norms   []float64
}

func NewIndex() *Index {
	return &Index{}
}

func (s *Index) ScoreDirection() core.Direction {
	return core.HigherIsBetter
}

// Add stores entries, replacing earlier entries that share a source.
// All vectors must have the dimensionality of the first one stored.
func (s *Index) Add(_ context.Context, entries []core.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	replaced := make(map[string]bool)
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return errors.New("index entry without vector")
		}
		if dims == 0 {
			dims = len(e.Vector)
		}
		if len(e.Vector) != dims {
			return fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(e.Vector), dims)
		}
		replaced[e.Metadata["source"]] = true
	}
	s.dims = dims
	s.drop(replaced)

	for _, e := range entries {
		s.entries = append(s.entries, e)
		s.norms = append(s.norms, norm(e.Vector))
	}
	return nil
}

// Delete drops every entry of source.
func (s *Index) Delete(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop(map[string]bool{source: true})
	return nil
}

func (s *Index) drop(sources map[string]bool) {
	kept := s.entries[:0]
	keptNorms := s.norms[:0]
	for i, e := range s.entries {
		if sources[e.Metadata["source"]] {
			continue
		}
		kept = append(kept, e)
		keptNorms = append(keptNorms, s.norms[i])
	}
	s.entries, s.norms = kept, keptNorms
}

func (s *Index) Search(_ context.Context, vector []float32, k int) ([]core.ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("query %w: got %d, want %d", core.ErrDimensionMismatch, len(vector), s.dims)
	}

	qn := norm(vector)
	results := make([]core.ScoredCandidate, len(s.entries))
	for i, e := range s.entries {
		results[i] = core.ScoredCandidate{
			Text:     e.Text,
			Metadata: e.Metadata,
			Score:    cosine(vector, e.Vector, qn, s.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine of a zero vector is NaN, which the relevance filter never keeps.
func cosine(a, b []float32, na, nb float64) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
