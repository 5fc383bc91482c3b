package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
)

// InsertTurn stores a formatted turn. Re-posting an existing id is a no-op;
// the returned bool is false in that case.
func (s *Store) InsertTurn(ctx context.Context, t conversation.Turn) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO formatted_conversation_turns (id, session_id, text, turn_type, timestamp, language_code, actor, original_item_id)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, current_timestamp), $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.SessionID, t.Text, t.TurnType, t.Timestamp.Ptr(), t.LanguageCode, string(t.Actor), t.OriginalItemID,
	)
	if err != nil {
		return false, fmt.Errorf("insert turn: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListTurns returns a session's turns in chronological order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, text, turn_type, timestamp, language_code, actor, original_item_id
		FROM formatted_conversation_turns
		WHERE session_id = $1
		ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []conversation.Turn{}
	for rows.Next() {
		var (
			t     conversation.Turn
			ts    time.Time
			actor string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Text, &t.TurnType, &ts, &t.LanguageCode, &actor, &t.OriginalItemID); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Timestamp = conversation.Timestamp{Time: ts}
		t.Actor = conversation.Actor(actor)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}
