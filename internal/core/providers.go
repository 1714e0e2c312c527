package core

import "context"

// LanguageModel turns an ordered conversation into one reply.
type LanguageModel interface {
	Invoke(ctx context.Context, turns []Turn) (string, error)
}

// Embedder maps text into the vector space of an index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is a read-only similarity index.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]ScoredCandidate, error)
}

// IndexWriter stores chunks. Adding entries for a source that already
// exists replaces its previous chunks. Delete drops every chunk of a source
// and is a no-op for unknown sources.
type IndexWriter interface {
	Add(ctx context.Context, entries []IndexEntry) error
	Delete(ctx context.Context, source string) error
}

// ScoreDirectioner is implemented by indexes that know the polarity of
// the scores they return.
type ScoreDirectioner interface {
	ScoreDirection() Direction
}

// ExchangeRecorder persists completed exchanges outside the in-memory history.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, sessionID string, user, assistant Turn) error
}

// ModelLister is implemented by language model providers that expose a catalogue.
type ModelLister interface {
	Models(ctx context.Context) ([]Model, error)
}
