package rag

import (
	"fmt"

	"github.com/sandevgo/docqa/internal/core"
)

// NewEmbedder creates the embedder selected by configuration.
func NewEmbedder(cfg core.EmbeddingConfig) (core.Embedder, error) {
	switch cfg.GetEmbeddingProvider() {
	case "ollama":
		return NewOllamaEmbedder(cfg.GetEmbeddingBaseURL(), cfg.GetEmbeddingAPIKey(), cfg.GetEmbeddingModel()), nil
	case "openai", "custom":
		return NewOpenAIEmbedder(cfg.GetEmbeddingBaseURL(), cfg.GetEmbeddingAPIKey(), cfg.GetEmbeddingModel()), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.GetEmbeddingProvider())
	}
}

// NewQueryEmbedder wraps the configured embedder with the query prefix.
func NewQueryEmbedder(cfg core.EmbeddingConfig) (core.Embedder, error) {
	e, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return WithPrefix(e, cfg.GetQueryPrefix()), nil
}

// NewPassageEmbedder wraps the configured embedder with the passage prefix.
func NewPassageEmbedder(cfg core.EmbeddingConfig) (core.Embedder, error) {
	e, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return WithPrefix(e, cfg.GetPassagePrefix()), nil
}
