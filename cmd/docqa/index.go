package main

import (
	"fmt"
	"os"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/providers/rag"
	"github.com/sandevgo/docqa/internal/service/harvest"
	"github.com/sandevgo/docqa/internal/service/indexer"
	"github.com/sandevgo/docqa/internal/storage/sqlite"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/spf13/cobra"
)

var (
	indexDir     string
	indexStats   bool
	indexRebuild bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and store the converted documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := commandContext(cmd, os.Stdout)
		defer done()
		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		ragCfg := config.NewRAGConfig(ctx, configPath)

		db, err := initStorage(ctx, appCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		store := sqlite.NewIndex(db)

		if indexRebuild && !indexStats {
			if err := store.Reset(ctx); err != nil {
				return err
			}
			logger.Info().Msg("index cleared for rebuild")
		}

		if !indexStats {
			dir := indexDir
			if dir == "" {
				dir = appCfg.GetDocumentsPath()
			}

			tok, err := rag.DefaultTokenizer()
			if err != nil {
				return err
			}
			chunker := rag.NewChunker(tok, rag.ChunkerConfig{
				MaxTokens:     ragCfg.ChunkSize,
				OverlapTokens: ragCfg.ChunkOverlap,
			})

			embedder, err := rag.NewPassageEmbedder(ragCfg)
			if err != nil {
				return err
			}

			records, err := harvest.ReadManifest(appCfg.GetDownloadPath())
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring download manifest")
			}

			idx := indexer.New(chunker, embedder, store, indexer.WithTitles(harvest.Titles(records)))
			report, err := idx.IndexDir(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d documents (%d failed)\n",
				report.Chunks, report.Documents, len(report.Failed))
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index holds %d documents, %d chunks (%d dimensions)\n",
			stats.Documents, stats.Chunks, stats.Dimensions)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexDir, "dir", "", "directory with .md/.txt documents (default: runtime documents dir)")
	indexCmd.Flags().BoolVar(&indexStats, "stats", false, "only print index statistics")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "drop the index first, required after changing the embedding model")
	rootCmd.AddCommand(indexCmd)
}
