package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
)

// Routes under /api/c serve the earlier client that stored raw realtime
// conversation items. Their loose responses are kept for that client.

func (s *Server) saveLegacy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID   string                   `json:"id"`
		Item *conversation.LegacyItem `json:"item"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &body); err != nil || body.ID == "" || body.Item == nil {
		writeJSON(w, http.StatusBadRequest, struct{}{})
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}
	if err := s.deps.Store.InsertLegacyMessage(r.Context(), body.ID, *body.Item); err != nil {
		s.logger.Error("failed to insert legacy message", "session_id", body.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to save message", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) listLegacy(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusOK, []conversation.LegacyMessage{})
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}
	msgs, err := s.deps.Store.ListLegacyMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list legacy messages", "session_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch messages", err.Error())
		return
	}
	if msgs == nil {
		msgs = []conversation.LegacyMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) deleteLegacy(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, "Missing conversation ID")
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}
	n, err := s.deps.Store.DeleteLegacyMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to delete legacy messages", "session_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to delete messages", err.Error())
		return
	}
	s.logger.Info("deleted legacy messages", "session_id", id, "count", n)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
