package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSystemInstruction = "You work in HR at a university. You are helpful but have a bit of an attitude. " +
		"You answer questions based on the provided context from the university policy documents. " +
		"If you don't know the answer, you say you don't know and suggest contacting HR directly."
	DefaultPromptTemplate = "context: {context}\n\nUser's actual question: {question}\n\n"
)

const (
	IndexBackendSQLite = "sqlite"
	IndexBackendMemory = "memory"
)

// RAGConfig holds the retrieval and conversation settings of a session.
// Values come from defaults, then the optional YAML file, then the environment.
type RAGConfig struct {
	TopK                int            `env:"RAG_TOP_K" yaml:"k"`
	ScoreThreshold      float64        `env:"RAG_SCORE_THRESHOLD" yaml:"score_threshold"`
	ComparisonDirection core.Direction `env:"RAG_COMPARISON_DIRECTION" yaml:"comparison_direction"`
	SystemInstruction   string         `env:"RAG_SYSTEM_INSTRUCTION" yaml:"system_instruction"`
	PromptTemplate      string         `env:"RAG_PROMPT_TEMPLATE" yaml:"prompt_template"`

	HistoryMaxExchanges int    `env:"RAG_HISTORY_MAX_EXCHANGES" yaml:"history_max_exchanges"`
	HistoryTokenBudget  int    `env:"RAG_HISTORY_TOKEN_BUDGET" yaml:"history_token_budget"`
	ContextMaxChars     int    `env:"RAG_CONTEXT_MAX_CHARS" yaml:"context_max_chars"`
	ContextSeparator    string `env:"RAG_CONTEXT_SEPARATOR" yaml:"context_separator"`
	IndexBackend        string `env:"RAG_INDEX_BACKEND" yaml:"index_backend"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" yaml:"embedding_provider"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL" yaml:"embedding_model"`
	EmbeddingBaseURL  string `env:"EMBEDDING_BASE_URL" yaml:"embedding_base_url"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY" yaml:"-"`
	QueryPrefix       string `env:"EMBEDDING_QUERY_PREFIX" yaml:"query_prefix"`
	PassagePrefix     string `env:"EMBEDDING_PASSAGE_PREFIX" yaml:"passage_prefix"`

	ChunkSize    int `env:"CHUNK_SIZE" yaml:"chunk_size"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" yaml:"chunk_overlap"`
}

func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		TopK:                3,
		ScoreThreshold:      0.75,
		ComparisonDirection: core.LowerIsBetter,
		SystemInstruction:   DefaultSystemInstruction,
		PromptTemplate:      DefaultPromptTemplate,
		HistoryMaxExchanges: 20,
		ContextMaxChars:     12000,
		ContextSeparator:    "\n\n",
		IndexBackend:        IndexBackendSQLite,
		EmbeddingProvider:   "ollama",
		EmbeddingModel:      "nomic-embed-text",
		EmbeddingBaseURL:    "http://localhost:11434",
		ChunkSize:           400,
		ChunkOverlap:        50,
	}
}

func NewRAGConfig(ctx context.Context, overlayPath string) *RAGConfig {
	cfg, err := LoadRAGConfig(overlayPath)
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse RAG config")
	}
	return cfg
}

// LoadRAGConfig builds the config from defaults, the YAML file at
// overlayPath (skipped when empty) and the environment, then validates it.
func LoadRAGConfig(overlayPath string) (*RAGConfig, error) {
	cfg := DefaultRAGConfig()
	if overlayPath != "" {
		if err := cfg.MergeFile(overlayPath); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the fields present in a YAML file.
func (c *RAGConfig) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *RAGConfig) Validate() error {
	var errs []error
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("k must be positive, got %d", c.TopK))
	}
	if !strings.Contains(c.PromptTemplate, "{context}") || !strings.Contains(c.PromptTemplate, "{question}") {
		errs = append(errs, errors.New("prompt template must contain {context} and {question}"))
	}
	if c.HistoryMaxExchanges < 0 || c.HistoryTokenBudget < 0 || c.ContextMaxChars < 0 {
		errs = append(errs, errors.New("history and context bounds must not be negative"))
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("invalid chunking %d/%d", c.ChunkSize, c.ChunkOverlap))
	}
	switch c.IndexBackend {
	case IndexBackendSQLite, IndexBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown index backend %q", c.IndexBackend))
	}
	return errors.Join(errs...)
}

// CheckIndex fails when the index declares a score polarity that
// disagrees with the configured comparison direction.
func (c *RAGConfig) CheckIndex(index core.Index) error {
	d, ok := index.(core.ScoreDirectioner)
	if !ok {
		return nil
	}
	if d.ScoreDirection() != c.ComparisonDirection {
		return fmt.Errorf("comparison direction %s does not match %s index scores (%s)",
			c.ComparisonDirection, c.IndexBackend, d.ScoreDirection())
	}
	return nil
}

func (c RAGConfig) GetEmbeddingProvider() string {
	return c.EmbeddingProvider
}

func (c RAGConfig) GetEmbeddingModel() string {
	return c.EmbeddingModel
}

func (c RAGConfig) GetEmbeddingBaseURL() string {
	return c.EmbeddingBaseURL
}

func (c RAGConfig) GetEmbeddingAPIKey() string {
	return c.EmbeddingAPIKey
}

func (c RAGConfig) GetQueryPrefix() string {
	return c.QueryPrefix
}

func (c RAGConfig) GetPassagePrefix() string {
	return c.PassagePrefix
}
