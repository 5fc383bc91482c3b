package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
	"github.com/MikeSquared-Agency/lingo/internal/hermes"
	"github.com/MikeSquared-Agency/lingo/internal/store"
)

const errDatabaseNotConfigured = "Database not configured"

func (s *Server) saveTurn(w http.ResponseWriter, r *http.Request) {
	var turn conversation.Turn
	if err := decodeJSON(w, r, maxJSONBody, &turn); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := turn.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, "Missing required fields for formatted turn")
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}

	inserted, err := s.deps.Store.InsertTurn(r.Context(), turn)
	if err != nil {
		s.logger.Error("failed to insert turn", "session_id", turn.SessionID, "turn_id", turn.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to save message", err.Error())
		return
	}
	s.logger.Info("turn stored",
		"turn_id", turn.ID,
		"session_id", turn.SessionID,
		"turn_type", turn.TurnType,
		"inserted", inserted,
	)

	if inserted && s.deps.Events != nil {
		if err := s.deps.Events.Publish(hermes.SubjectTurnStored, hermes.TurnStoredEvent{
			TurnID:       turn.ID,
			SessionID:    turn.SessionID,
			TurnType:     turn.TurnType,
			LanguageCode: turn.LanguageCode,
			Actor:        string(turn.Actor),
		}); err != nil {
			s.logger.Warn("failed to publish turn stored", "turn_id", turn.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": turn.ID})
}

func (s *Server) listTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		jsonError(w, http.StatusBadRequest, "Missing session_id query parameter")
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}

	turns, err := s.deps.Store.ListTurns(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to list turns", "session_id", sessionID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch messages", err.Error())
		return
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		jsonError(w, http.StatusBadRequest, "Missing session_id")
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}

	summary, err := s.deps.Store.GetSummary(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Summary not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch summary", "session_id", sessionID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch summary", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}
	snippets, err := s.deps.Store.ListSummaries(r.Context())
	if err != nil {
		s.logger.Error("failed to list summaries", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch conversation summaries", err.Error())
		return
	}
	if snippets == nil {
		snippets = []conversation.SummarySnippet{}
	}
	writeJSON(w, http.StatusOK, snippets)
}
