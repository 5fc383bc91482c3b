package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
)

const snippetLength = 100

// UpsertSummary writes the summary for a session, replacing any earlier one.
func (s *Store) UpsertSummary(ctx context.Context, sessionID, text string, actions json.RawMessage) error {
	if len(actions) == 0 {
		actions = json.RawMessage("[]")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_summaries (session_id, summary_text, detected_actions, created_at)
		VALUES ($1, $2, $3, current_timestamp)
		ON CONFLICT (session_id) DO UPDATE SET
			summary_text = EXCLUDED.summary_text,
			detected_actions = EXCLUDED.detected_actions,
			created_at = current_timestamp`,
		sessionID, text, []byte(actions),
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// GetSummary returns the latest summary for a session or ErrNotFound.
func (s *Store) GetSummary(ctx context.Context, sessionID string) (*conversation.Summary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, summary_text, detected_actions, created_at
		FROM conversation_summaries
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)

	var (
		sum     conversation.Summary
		actions []byte
	)
	if err := row.Scan(&sum.SessionID, &sum.SummaryText, &actions, &sum.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if len(actions) == 0 {
		actions = []byte("[]")
	}
	sum.DetectedActions = actions
	return &sum, nil
}

// ListSummaries returns a snippet of every summary, newest first.
func (s *Store) ListSummaries(ctx context.Context) ([]conversation.SummarySnippet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, SUBSTRING(summary_text FROM 1 FOR $1) AS summary_text_snippet, created_at
		FROM conversation_summaries
		ORDER BY created_at DESC`, snippetLength)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}

	snippets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (conversation.SummarySnippet, error) {
		var sn conversation.SummarySnippet
		err := row.Scan(&sn.SessionID, &sn.SummaryTextSnippet, &sn.CreatedAt)
		return sn, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect summaries: %w", err)
	}
	if snippets == nil {
		snippets = []conversation.SummarySnippet{}
	}
	return snippets, nil
}
