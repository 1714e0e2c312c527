package rag

import (
	"context"

	"github.com/sandevgo/docqa/internal/core"
)

// Prefixes used by e5 style dual encoders.
const (
	E5QueryPrefix   = "query: "
	E5PassagePrefix = "passage: "
)

type prefixed struct {
	core.Embedder
	prefix string
}

// WithPrefix prepends prefix to every text before embedding.
func WithPrefix(e core.Embedder, prefix string) core.Embedder {
	if prefix == "" {
		return e
	}
	return prefixed{Embedder: e, prefix: prefix}
}

func (p prefixed) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.Embedder.Embed(ctx, p.prefix+text)
}
