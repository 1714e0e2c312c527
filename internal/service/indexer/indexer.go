package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/providers/rag"
	"github.com/sandevgo/docqa/pkg/conv"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/retry"
)

// Metadata keys written on every chunk.
const (
	MetaSource = "source"
	MetaChunk  = "chunk"
	MetaTitle  = "title"
)

type Chunker interface {
	Chunk(text string) []rag.Chunk
}

type Option func(*Indexer)

// WithTitles sets display titles keyed by file stem.
func WithTitles(titles map[string]string) Option {
	return func(i *Indexer) { i.titles = titles }
}

func WithRetrier(r *retry.Retrier) Option {
	return func(i *Indexer) { i.retrier = r }
}

// Indexer loads documents, chunks them and writes embedded chunks to an index.
type Indexer struct {
	chunker  Chunker
	embedder core.Embedder
	writer   core.IndexWriter
	retrier  *retry.Retrier
	titles   map[string]string
}

func New(chunker Chunker, embedder core.Embedder, writer core.IndexWriter, opts ...Option) *Indexer {
	i := &Indexer{
		chunker:  chunker,
		embedder: embedder,
		writer:   writer,
		retrier:  retry.NewDefaultRetrier(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type Report struct {
	Documents int
	Chunks    int
	Empty     []string
	Failed    map[string]error
}

// IndexDir indexes every *.md and *.txt file in dir, in name order.
func (i *Indexer) IndexDir(ctx context.Context, dir string) (Report, error) {
	logger := log.FromCtx(ctx)
	report := Report{Failed: make(map[string]error)}

	files, err := documentFiles(dir)
	if err != nil {
		return report, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := filepath.Base(path)
		n, err := i.IndexFile(ctx, path)
		if err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("indexing failed")
			report.Failed[name] = err
			continue
		}
		if n == 0 {
			report.Empty = append(report.Empty, name)
			continue
		}

		report.Documents++
		report.Chunks += n
	}

	logger.Info().
		Int("documents", report.Documents).
		Int("chunks", report.Chunks).
		Int("failed", len(report.Failed)).
		Msg("indexing complete")
	return report, nil
}

// IndexFile replaces the chunks of one document and returns how many were
// written. A document without chunks is removed from the index.
func (i *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text := string(data)
	if strings.EqualFold(filepath.Ext(path), ".md") {
		if text, err = conv.MarkdownToText(data); err != nil {
			return 0, fmt.Errorf("failed to normalize %s: %w", path, err)
		}
	}

	source := filepath.Base(path)
	chunks := i.chunker.Chunk(text)
	if len(chunks) == 0 {
		// No chunks: drop whatever the source held before.
		if err := i.writer.Delete(ctx, source); err != nil {
			return 0, fmt.Errorf("remove %s: %w", source, err)
		}
		return 0, nil
	}

	title := i.title(source)

	entries := make([]core.IndexEntry, 0, len(chunks))
	for _, c := range chunks {
		vec, err := i.embed(ctx, c.Text)
		if err != nil {
			return 0, fmt.Errorf("embed %s chunk %d: %w", source, c.Index, err)
		}
		entries = append(entries, core.IndexEntry{
			Text: c.Text,
			Metadata: map[string]string{
				MetaSource: source,
				MetaChunk:  strconv.Itoa(c.Index),
				MetaTitle:  title,
			},
			Vector: vec,
		})
	}

	if err := i.writer.Add(ctx, entries); err != nil {
		return 0, fmt.Errorf("write %s: %w", source, err)
	}

	log.FromCtx(ctx).Debug().Str("source", source).Int("chunks", len(entries)).Msg("indexed")
	return len(entries), nil
}

func (i *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := i.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = i.embedder.Embed(ctx, text)
		return err
	})
	return vec, err
}

func (i *Indexer) title(source string) string {
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	if t, ok := i.titles[stem]; ok && t != "" {
		return t
	}
	return stem
}

func documentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".md", ".txt":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
