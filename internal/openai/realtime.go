package openai

import (
	"context"
	"encoding/json"
	"fmt"
)

type RealtimeSessionRequest struct {
	Model                   string                   `json:"model"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	Modalities              []string                 `json:"modalities,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	Include                 []string                 `json:"include,omitempty"`
}

type InputAudioTranscription struct {
	Model string `json:"model"`
}

type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
	InterruptResponse bool    `json:"interrupt_response"`
}

type RealtimeSession struct {
	ID           string `json:"id"`
	ClientSecret *struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`

	// Raw is the full upstream body, passed back to the browser as-is.
	Raw json.RawMessage `json:"-"`
}

// EphemeralKey returns the short-lived client secret, or "" if absent.
func (s *RealtimeSession) EphemeralKey() string {
	if s.ClientSecret == nil {
		return ""
	}
	return s.ClientSecret.Value
}

// CreateRealtimeSession mints a realtime session whose ephemeral key the
// browser uses to open its own WebRTC connection.
func (c *Client) CreateRealtimeSession(ctx context.Context, req RealtimeSessionRequest) (*RealtimeSession, error) {
	raw, err := c.postJSON(ctx, "realtime/sessions", req, nil)
	if err != nil {
		return nil, fmt.Errorf("create realtime session: %w", err)
	}

	var sess RealtimeSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal realtime session: %w", err)
	}
	sess.Raw = raw
	return &sess, nil
}
