package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
)

const metaDimensions = "dimensions"

// Index stores chunk text in sqlite and their embeddings in a sqlite-vec
// vec0 table. Scores are L2 distances, so lower is better.
type Index struct {
	db *sql.DB
}

func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

func (r *Index) ScoreDirection() core.Direction {
	return core.LowerIsBetter
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dimensions returns the embedding size of the vector table, 0 before the first insert.
func dimensions(ctx context.Context, q querier) (int, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, metaDimensions).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimensions: %w", err)
	}
	return strconv.Atoi(v)
}

// Add stores entries grouped by their "source" metadata. Existing chunks of
// a source are replaced. Every vector must match the index dimensions.
func (r *Index) Add(ctx context.Context, entries []core.IndexEntry) error {
	var order []string
	bySource := make(map[string][]core.IndexEntry)
	for _, e := range entries {
		src := e.Metadata["source"]
		if src == "" {
			return errors.New("index entry without source metadata")
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("index entry of %s without vector", src)
		}
		if _, ok := bySource[src]; !ok {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], e)
	}

	for _, src := range order {
		if err := r.replaceSource(ctx, src, bySource[src]); err != nil {
			return err
		}
	}
	return nil
}

// Delete drops a source and its chunks. Unknown sources are ignored.
func (r *Index) Delete(ctx context.Context, source string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var docID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE source = ?`, source).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up document %s: %w", source, err)
	}

	if err := clearChunks(ctx, tx, docID); err != nil {
		return fmt.Errorf("failed to clear chunks of %s: %w", source, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", source, err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.FromCtx(ctx).Debug().Str("source", source).Msg("removed document from index")
	return nil
}

func (r *Index) replaceSource(ctx context.Context, source string, entries []core.IndexEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureVectorTable(ctx, tx, len(entries[0].Vector)); err != nil {
		return err
	}

	title := entries[0].Metadata["title"]
	var docID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO documents (source, title) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET title = excluded.title, indexed_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		source, title,
	).Scan(&docID)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", source, err)
	}

	if err := clearChunks(ctx, tx, docID); err != nil {
		return fmt.Errorf("failed to clear chunks of %s: %w", source, err)
	}

	for i, e := range entries {
		if len(e.Vector) != len(entries[0].Vector) {
			return fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(e.Vector), len(entries[0].Vector))
		}
		blob, err := serializeVector(e.Vector)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		chunkIndex := i
		if v, err := strconv.Atoi(e.Metadata["chunk"]); err == nil {
			chunkIndex = v
		}

		// 1. Chunk row
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (document_id, chunk_index, text, metadata, dims, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			docID, chunkIndex, e.Text, string(meta), len(e.Vector), blob,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		// 2. Vector keyed by the chunk rowid
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_vec (rowid, embedding) VALUES (?, ?)`, id, blob,
		); err != nil {
			return fmt.Errorf("failed to insert chunk vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.FromCtx(ctx).Debug().Str("source", source).Int("chunks", len(entries)).Msg("indexed document")
	return nil
}

// ensureVectorTable creates the vec0 table on first use and rejects vectors
// of any other size afterwards.
func ensureVectorTable(ctx context.Context, tx *sql.Tx, dims int) error {
	current, err := dimensions(ctx, tx)
	if err != nil {
		return err
	}
	if current != 0 {
		if current != dims {
			return fmt.Errorf("%w: got %d, want %d (rebuild the index after changing the embedding model)",
				core.ErrDimensionMismatch, dims, current)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(embedding float[%d])`, dims),
	); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES (?, ?)`, metaDimensions, strconv.Itoa(dims),
	); err != nil {
		return fmt.Errorf("failed to record index dimensions: %w", err)
	}
	return nil
}

// clearChunks removes the chunks of a document and their vectors.
func clearChunks(ctx context.Context, tx *sql.Tx, docID int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, docID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_vec WHERE rowid = ?`, id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID)
	return err
}

// Search returns the k nearest chunks by L2 distance, closest first.
func (r *Index) Search(ctx context.Context, vector []float32, k int) ([]core.ScoredCandidate, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	dims, err := dimensions(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return nil, nil
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query %w: got %d, want %d", core.ErrDimensionMismatch, len(vector), dims)
	}

	blob, err := serializeVector(vector)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT rowid, distance
			FROM chunks_vec
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT c.text, c.metadata, knn.distance
		FROM knn
		JOIN chunks c ON c.id = knn.rowid
		ORDER BY knn.distance`,
		blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []core.ScoredCandidate
	for rows.Next() {
		var (
			c    core.ScoredCandidate
			meta string
		)
		if err := rows.Scan(&c.Text, &meta, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Reset drops every document and the vector table, so the next Add may use
// a different embedding size.
func (r *Index) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS chunks_vec`,
		`DELETE FROM chunks`,
		`DELETE FROM documents`,
		`DELETE FROM index_meta WHERE key = '` + metaDimensions + `'`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}
	return tx.Commit()
}

// Entries loads every stored chunk with its vector.
func (r *Index) Entries(ctx context.Context) ([]core.IndexEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.text, c.metadata, c.dims, c.embedding FROM chunks c ORDER BY c.document_id, c.chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var entries []core.IndexEntry
	for rows.Next() {
		var (
			e    core.IndexEntry
			meta string
			dims int
			blob []byte
		)
		if err := rows.Scan(&e.Text, &meta, &dims, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
		}
		if e.Vector, err = deserializeVector(blob, dims); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type IndexStats struct {
	Documents  int
	Chunks     int
	Dimensions int
}

func (r *Index) Stats(ctx context.Context) (IndexStats, error) {
	var s IndexStats
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM chunks)`,
	).Scan(&s.Documents, &s.Chunks)
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to count index: %w", err)
	}
	if s.Dimensions, err = dimensions(ctx, r.db); err != nil {
		return IndexStats{}, err
	}
	return s, nil
}
