package api

import (
	"encoding/json"
	"net/http"
)

const (
	maxJSONBody  = 1 << 20
	maxAudioBody = 32 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// jsonError writes {"error": msg} with an optional details string.
func jsonError(w http.ResponseWriter, status int, msg string, details ...string) {
	body := errorBody{Error: msg}
	if len(details) > 0 {
		body.Details = details[0]
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}
