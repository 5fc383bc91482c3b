package conversation

import (
	"encoding/json"
	"errors"
	"time"
)

// Actor identifies who spoke a turn.
type Actor string

const (
	ActorUser      Actor = "user"
	ActorAssistant Actor = "assistant"
	ActorSystem    Actor = "system"
)

// Turn is one formatted line of the bilingual transcript.
type Turn struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Text           string    `json:"text"`
	TurnType       string    `json:"turn_type"` // e.g. "transcript", "translation", "repeat"
	Timestamp      Timestamp `json:"timestamp"`
	LanguageCode   string    `json:"language_code"`
	Actor          Actor     `json:"actor"`
	OriginalItemID *string   `json:"original_item_id"`
}

var ErrMissingTurnFields = errors.New("missing required fields for formatted turn")

// Validate checks the fields the turns table requires.
func (t Turn) Validate() error {
	if t.ID == "" || t.SessionID == "" || t.Text == "" || t.TurnType == "" || t.LanguageCode == "" || t.Actor == "" {
		return ErrMissingTurnFields
	}
	return nil
}

// IsDialogue reports whether the turn was spoken by the user or the assistant.
func (t Turn) IsDialogue() bool {
	return t.Actor == ActorUser || t.Actor == ActorAssistant
}

// Summary is the stored summary of a finished session.
type Summary struct {
	SessionID       string          `json:"session_id"`
	SummaryText     string          `json:"summary_text"`
	DetectedActions json.RawMessage `json:"detected_actions"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SummarySnippet is a list entry for the summaries index.
type SummarySnippet struct {
	SessionID          string    `json:"session_id"`
	SummaryTextSnippet string    `json:"summary_text_snippet"`
	CreatedAt          time.Time `json:"created_at"`
}

// LegacyItem is a raw realtime conversation item as posted by older clients.
type LegacyItem struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"`
	Type    string              `json:"type"`
	Status  string              `json:"status"`
	Role    string              `json:"role"`
	Content []LegacyItemContent `json:"content"`
}

type LegacyItemContent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

// LegacyMessage is a row of the legacy messages table.
type LegacyMessage struct {
	CreatedAt         int64   `json:"created_at"`
	ID                string  `json:"id"`
	SessionID         string  `json:"session_id"`
	ContentType       *string `json:"content_type"`
	ContentTranscript *string `json:"content_transcript"`
	Object            *string `json:"object"`
	Role              *string `json:"role"`
	Status            *string `json:"status"`
	Type              *string `json:"type"`
}
