package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRAGConfig_Defaults(t *testing.T) {
	cfg, err := LoadRAGConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 0.75, cfg.ScoreThreshold)
	assert.Equal(t, core.LowerIsBetter, cfg.ComparisonDirection)
	assert.Equal(t, DefaultPromptTemplate, cfg.PromptTemplate)
	assert.Equal(t, "\n\n", cfg.ContextSeparator)
	assert.Equal(t, 20, cfg.HistoryMaxExchanges)
	assert.Equal(t, IndexBackendSQLite, cfg.IndexBackend)
}

func TestLoadRAGConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""+
		"k: 5\n"+
		"score_threshold: 0.4\n"+
		"comparison_direction: higher_is_better\n"+
		"index_backend: memory\n"), 0o644))

	t.Setenv("RAG_TOP_K", "7")

	cfg, err := LoadRAGConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.TopK)
	assert.Equal(t, 0.4, cfg.ScoreThreshold)
	assert.Equal(t, core.HigherIsBetter, cfg.ComparisonDirection)
	assert.Equal(t, IndexBackendMemory, cfg.IndexBackend)
}

func TestLoadRAGConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero k", map[string]string{"RAG_TOP_K": "0"}},
		{"template without question", map[string]string{"RAG_PROMPT_TEMPLATE": "context: {context}"}},
		{"unknown direction", map[string]string{"RAG_COMPARISON_DIRECTION": "sideways"}},
		{"unknown backend", map[string]string{"RAG_INDEX_BACKEND": "milvus"}},
		{"overlap too large", map[string]string{"CHUNK_OVERLAP": "400"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadRAGConfig("")
			assert.Error(t, err)
		})
	}
}

type directedIndex struct {
	dir core.Direction
}

func (directedIndex) Search(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
	return nil, nil
}

func (d directedIndex) ScoreDirection() core.Direction {
	return d.dir
}

type plainIndex struct{}

func (plainIndex) Search(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
	return nil, nil
}

func TestRAGConfig_CheckIndex(t *testing.T) {
	cfg := DefaultRAGConfig()

	assert.NoError(t, cfg.CheckIndex(directedIndex{dir: core.LowerIsBetter}))
	assert.Error(t, cfg.CheckIndex(directedIndex{dir: core.HigherIsBetter}))
	assert.NoError(t, cfg.CheckIndex(plainIndex{}))
}

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCQA_RUNTIME_PATH", dir)
	t.Setenv("LLM_PROVIDER", "openai")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetProvider())
	assert.Equal(t, filepath.Join(dir, "docqa.db"), cfg.GetDatabasePath())
	assert.Equal(t, filepath.Join(dir, "pdfs"), cfg.GetDownloadPath())
}

func TestResolveRuntimePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".docqa"), ResolveRuntimePath(""))
	assert.Equal(t, "/srv/docqa", ResolveRuntimePath("/srv/docqa"))
}
