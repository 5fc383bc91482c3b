package hermes

import (
	"strings"
	"time"
)

const (
	SubjectTurnStored      = "lingo.turn.stored"
	SubjectSummaryCreated  = "lingo.summary.created"
	SubjectSessionClosed   = "lingo.session.closed"
	SubjectAgentRegistered = "lingo.agent.registered"

	transcriptionPrefix = "lingo.transcription."
)

// Event names carried on transcription channels.
const (
	EventTranscriptionUpdate = "transcription_update"
	EventTranscriptionError  = "transcription_error"
)

// TranscriptionChannel is the browser-facing channel for a session or client.
func TranscriptionChannel(id string) string {
	return "transcription:" + id
}

// TranscriptionSubject maps a browser channel name to its NATS subject.
func TranscriptionSubject(channel string) string {
	return transcriptionPrefix + SanitizeToken(channel)
}

// SanitizeToken makes s safe to use as a single NATS subject token.
// Separators and wildcards become underscores.
func SanitizeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '*' || r == '>' || r <= ' ' || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, s)
}

// ChannelMessage is the envelope published on a transcription channel.
type ChannelMessage struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// TranscriptionUpdate is the data of a transcription_update message.
type TranscriptionUpdate struct {
	Text      string    `json:"text"`
	IsFinal   bool      `json:"isFinal"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptionError is the data of a transcription_error message.
type TranscriptionError struct {
	Message string `json:"message"`
}

// TurnStoredEvent announces a newly persisted turn.
type TurnStoredEvent struct {
	TurnID       string `json:"turn_id"`
	SessionID    string `json:"session_id"`
	TurnType     string `json:"turn_type"`
	LanguageCode string `json:"language_code"`
	Actor        string `json:"actor"`
}

// SummaryCreatedEvent announces a stored session summary.
type SummaryCreatedEvent struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	ActionCount int       `json:"action_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// SessionClosedEvent asks for a session to be summarized.
type SessionClosedEvent struct {
	SessionID string `json:"session_id"`
}
