package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/providers/llm"
	"github.com/sandevgo/docqa/internal/providers/rag"
	"github.com/sandevgo/docqa/internal/service/retrieval"
	"github.com/sandevgo/docqa/internal/service/session"
	"github.com/sandevgo/docqa/internal/storage/memory"
	"github.com/sandevgo/docqa/internal/storage/sqlite"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/metrics"
)

// runtime holds everything a question-answering command needs.
type runtime struct {
	appCfg   *config.AppConfig
	ragCfg   *config.RAGConfig
	db       *sql.DB
	provider llm.Provider
	metrics  *metrics.Manager
	session  *session.Session
	probe    *retrieval.Probe
}

func (r *runtime) Close() error {
	return r.db.Close()
}

// newRuntime wires storage, index, embedder, model and the session.
// withModel false skips the language model, for retrieval-only commands.
func newRuntime(ctx context.Context, withModel bool) (*runtime, error) {
	appCfg := config.NewAppConfig(ctx)
	ragCfg := config.NewRAGConfig(ctx, configPath)

	db, err := initStorage(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	rt := &runtime{
		appCfg:  appCfg,
		ragCfg:  ragCfg,
		db:      db,
		metrics: metrics.NewManager(metrics.Config{Enabled: appCfg.GetMetricsAddr() != ""}),
	}

	index, err := initIndex(ctx, ragCfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	embedder, err := rag.NewQueryEmbedder(ragCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	retriever := retrieval.NewRetriever(embedder, index)
	filter := retrieval.NewFilter(ragCfg.ComparisonDirection, retrieval.MultiSink{
		retrieval.LogSink{},
		retrieval.MetricsSink{Metrics: rt.metrics},
	})
	rt.probe = retrieval.NewProbe(retriever, filter, ragCfg.TopK, ragCfg.ScoreThreshold)

	if !withModel {
		return rt, nil
	}

	rt.provider, err = llm.NewProvider(ctx, appCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	history := session.HistoryOptions{
		MaxExchanges: ragCfg.HistoryMaxExchanges,
		TokenBudget:  ragCfg.HistoryTokenBudget,
	}
	if history.TokenBudget > 0 {
		tok, err := rag.DefaultTokenizer()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("history token budget needs a tokenizer: %w", err)
		}
		history.CountTokens = rag.TokenCounter(tok)
	}

	opts := []session.Option{session.WithMetrics(rt.metrics)}
	if appCfg.RecordTranscript {
		opts = append(opts, session.WithRecorder(sqlite.NewTranscriptRepo(db)))
	}

	rt.session, err = session.New(
		session.Config{
			K:                 ragCfg.TopK,
			ScoreThreshold:    ragCfg.ScoreThreshold,
			SystemInstruction: ragCfg.SystemInstruction,
			PromptTemplate:    ragCfg.PromptTemplate,
			History:           history,
		},
		retriever,
		filter,
		retrieval.NewAssembler(ragCfg.ContextSeparator, ragCfg.ContextMaxChars),
		rt.provider,
		opts...,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.FromCtx(ctx).Debug().Str("session", rt.session.ID()).Msg("session ready")
	return rt, nil
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	return sqlite.NewDB(ctx, cfg.GetDatabasePath())
}

// initIndex opens the configured index backend. The memory backend is
// loaded from the chunks stored in sqlite.
func initIndex(ctx context.Context, cfg *config.RAGConfig, db *sql.DB) (core.Index, error) {
	store := sqlite.NewIndex(db)

	var index core.Index
	switch cfg.IndexBackend {
	case config.IndexBackendSQLite:
		index = store
	case config.IndexBackendMemory:
		entries, err := store.Entries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load index entries: %w", err)
		}
		mem := memory.NewIndex()
		if err := mem.Add(ctx, entries); err != nil {
			return nil, fmt.Errorf("failed to build memory index: %w", err)
		}
		log.FromCtx(ctx).Debug().Int("chunks", mem.Len()).Msg("memory index loaded")
		index = mem
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}

	if err := cfg.CheckIndex(index); err != nil {
		return nil, err
	}
	return index, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
