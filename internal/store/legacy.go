package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
)

// InsertLegacyMessage stores a raw conversation item in the legacy messages
// table. created_at is the session's row count at insert time, which gives
// older clients their ordering key.
func (s *Store) InsertLegacyMessage(ctx context.Context, sessionID string, item conversation.LegacyItem) error {
	var contentType, transcript *string
	if len(item.Content) > 0 {
		contentType = &item.Content[0].Type
		transcript = &item.Content[0].Transcript
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (created_at, id, session_id, content_type, content_transcript, object, role, status, type)
		VALUES ((SELECT COUNT(*) FROM messages WHERE session_id = $2), $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`,
		item.ID, sessionID, contentType, transcript, item.Object, item.Role, item.Status, item.Type,
	)
	if err != nil {
		return fmt.Errorf("insert legacy message: %w", err)
	}
	return nil
}

func (s *Store) ListLegacyMessages(ctx context.Context, sessionID string) ([]conversation.LegacyMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT created_at, id, session_id, content_type, content_transcript, object, role, status, type
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query legacy messages: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (conversation.LegacyMessage, error) {
		var m conversation.LegacyMessage
		err := row.Scan(&m.CreatedAt, &m.ID, &m.SessionID, &m.ContentType, &m.ContentTranscript, &m.Object, &m.Role, &m.Status, &m.Type)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect legacy messages: %w", err)
	}
	if msgs == nil {
		msgs = []conversation.LegacyMessage{}
	}
	return msgs, nil
}

// DeleteLegacyMessages removes every legacy message of a session and
// returns how many rows went away.
func (s *Store) DeleteLegacyMessages(ctx context.Context, sessionID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete legacy messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
