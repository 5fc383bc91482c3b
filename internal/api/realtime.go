package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/lingo/internal/realtime"
)

const defaultClientID = "default-client"

type tokenResponse struct {
	realtime.TokenRequest
	Token string `json:"token"`
}

// realtimeAuth issues a signed grant. The encoded token goes on the
// websocket URL as ?token=.
func (s *Server) realtimeAuth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tokens == nil {
		s.logger.Error("realtime signing key not configured")
		jsonError(w, http.StatusInternalServerError, "Realtime signing key not configured on server")
		return
	}
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = defaultClientID
	}

	tr, err := s.deps.Tokens.Issue(clientID, realtime.Capability{
		"*": {realtime.OpSubscribe, realtime.OpPublish},
	})
	if err != nil {
		s.logger.Error("failed to issue realtime token", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to create realtime token request", err.Error())
		return
	}
	s.logger.Debug("realtime token issued", "client_id", clientID)
	writeJSON(w, http.StatusOK, tokenResponse{TokenRequest: tr, Token: tr.Encode()})
}

func (s *Server) realtimeSocket(w http.ResponseWriter, r *http.Request) {
	if s.deps.Realtime == nil {
		jsonError(w, http.StatusInternalServerError, "Realtime not configured")
		return
	}
	s.deps.Realtime.ServeHTTP(w, r)
}
