package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/lingo/internal/hermes"
	"github.com/MikeSquared-Agency/lingo/internal/openai"
)

var (
	ErrNoAudio     = errors.New("no audio data provided")
	ErrNoClientID  = errors.New("client id not provided")
	ErrBadEncoding = errors.New("audio data is not valid base64")
)

type Transcriber interface {
	Transcribe(ctx context.Context, req openai.TranscriptionRequest) (string, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Submission is one base64-encoded audio clip from the browser.
type Submission struct {
	Audio          string `json:"audio"`
	ClientID       string `json:"clientId"`
	SessionID      string `json:"sessionId"`
	IsFinal        *bool  `json:"isFinal"`
	SourceLanguage string `json:"sourceLanguage"`
	WhisperModel   string `json:"whisperModel"`
}

// Channel is the transcription channel the browser listens on.
func (s Submission) Channel() string {
	if s.SessionID != "" {
		return hermes.TranscriptionChannel(s.SessionID)
	}
	return hermes.TranscriptionChannel(s.ClientID)
}

// Validate reports the first missing field as one of the Err* sentinels.
func (s Submission) Validate() error {
	if s.Audio == "" {
		return ErrNoAudio
	}
	if s.ClientID == "" {
		return ErrNoClientID
	}
	return nil
}

type Service struct {
	transcriber  Transcriber
	publisher    Publisher
	defaultModel string
	logger       *slog.Logger
	now          func() time.Time
}

func New(transcriber Transcriber, publisher Publisher, defaultModel string, logger *slog.Logger) *Service {
	return &Service{
		transcriber:  transcriber,
		publisher:    publisher,
		defaultModel: defaultModel,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit transcribes the clip and publishes the outcome to the client's
// transcription channel. Validation failures return an Err* sentinel and
// publish nothing.
func (s *Service) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := sub.Validate(); err != nil {
		return "", err
	}
	audio, err := decodeAudio(sub.Audio)
	if err != nil {
		return "", err
	}

	model := sub.WhisperModel
	if model == "" {
		model = s.defaultModel
	}
	isFinal := true
	if sub.IsFinal != nil {
		isFinal = *sub.IsFinal
	}
	channel := sub.Channel()
	subject := hermes.TranscriptionSubject(channel)

	s.logger.Info("transcribing audio",
		"client_id", sub.ClientID,
		"session_id", sub.SessionID,
		"bytes", len(audio),
		"model", model,
		"is_final", isFinal,
	)

	text, err := s.transcriber.Transcribe(ctx, openai.TranscriptionRequest{
		Audio:    audio,
		Model:    model,
		Language: sub.SourceLanguage,
	})
	if err != nil {
		s.logger.Error("transcription failed", "client_id", sub.ClientID, "error", err)
		s.publish(subject, hermes.ChannelMessage{
			Name: hermes.EventTranscriptionError,
			Data: hermes.TranscriptionError{Message: "Transcription failed: " + err.Error()},
		})
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text = strings.TrimSpace(text)
	s.publish(subject, hermes.ChannelMessage{
		Name: hermes.EventTranscriptionUpdate,
		Data: hermes.TranscriptionUpdate{Text: text, IsFinal: isFinal, Timestamp: s.now().UTC()},
	})
	s.logger.Debug("published transcription", "channel", channel)
	return text, nil
}

func (s *Service) publish(subject string, msg hermes.ChannelMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, msg); err != nil {
		s.logger.Warn("transcription publish failed", "subject", subject, "event", msg.Name, "error", err)
	}
}

var audioEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeAudio accepts padded or unpadded input in either the standard or the
// URL-safe alphabet.
func decodeAudio(s string) ([]byte, error) {
	for _, enc := range audioEncodings {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrBadEncoding
}
