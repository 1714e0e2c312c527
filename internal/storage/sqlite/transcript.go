package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
)

// Exchange is one recorded question and answer.
type Exchange struct {
	ID        int64
	SessionID string
	User      string
	Assistant string
	CreatedAt time.Time
}

type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) RecordExchange(ctx context.Context, sessionID string, user, assistant core.Turn) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, user_content, assistant_content) VALUES (?, ?, ?)`,
		sessionID, user.Content, assistant.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// Recent returns the last limit exchanges in chronological order. An empty
// sessionID matches every session.
func (r *TranscriptRepo) Recent(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	query := `SELECT id, session_id, user_content, assistant_content, created_at FROM exchanges
		WHERE (? = '' OR session_id = ?) ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.SessionID, &e.User, &e.Assistant, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest first from the query, oldest first for the reader.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(exchanges)).Msg("loaded transcript")
	return exchanges, nil
}
