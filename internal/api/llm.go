package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MikeSquared-Agency/lingo/internal/openai"
	"github.com/MikeSquared-Agency/lingo/internal/transcribe"
	"github.com/MikeSquared-Agency/lingo/internal/translate"
)

const (
	errLLMNotConfigured = "OpenAI API key not configured"

	defaultRealtimeModel      = "gpt-4o-mini-realtime-preview-2024-12-17"
	defaultTranscriptionModel = "gpt-4o-mini-transcribe"

	transcriptionInstructions = "Your ONLY task is to accurately transcribe the audio to text. " +
		"Output ONLY the transcribed text. DO NOT generate conversational responses, commentary, " +
		"interpretations, or any audio output. Focus strictly on transcription."
)

func (s *Server) translateText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transcript     string `json:"transcript"`
		SourceLanguage string `json:"source_language"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.Transcript == "" {
		jsonError(w, http.StatusBadRequest, "Missing transcript")
		return
	}
	if s.deps.Translator == nil {
		jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		return
	}

	result, err := s.deps.Translator.Translate(r.Context(), body.Transcript, body.SourceLanguage)
	if err != nil {
		var te *translate.Error
		if errors.As(err, &te) {
			jsonError(w, te.Status, te.Message)
			return
		}
		s.logger.Error("translation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error during processing", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) summarizeSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.SessionID == "" {
		jsonError(w, http.StatusBadRequest, "Missing sessionId")
		return
	}
	if s.deps.Store == nil {
		jsonError(w, http.StatusInternalServerError, errDatabaseNotConfigured)
		return
	}
	if s.deps.Sessions == nil {
		jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		return
	}

	result, err := s.deps.Sessions.SummarizeSession(r.Context(), body.SessionID)
	if err != nil {
		s.logger.Error("summarization failed", "session_id", body.SessionID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to generate summary", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) submitToolOutputs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ThreadID    string              `json:"threadId"`
		RunID       string              `json:"runId"`
		ToolOutputs []openai.ToolOutput `json:"toolOutputs"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.ThreadID == "" || body.RunID == "" || body.ToolOutputs == nil {
		jsonError(w, http.StatusBadRequest, "Missing threadId, runId, or toolOutputs")
		return
	}
	if s.deps.Upstream == nil {
		jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		return
	}

	run, err := s.deps.Upstream.SubmitToolOutputs(r.Context(), body.ThreadID, body.RunID, body.ToolOutputs)
	if err != nil {
		s.logger.Error("submit tool outputs failed", "thread_id", body.ThreadID, "run_id", body.RunID, "error", err)
		details := err.Error()
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			details = fmt.Sprintf("OpenAI API Error: %d %s - %s", apiErr.StatusCode, apiErr.Type, apiErr.Message)
		}
		jsonError(w, http.StatusInternalServerError, "Failed to submit tool outputs", details)
		return
	}
	s.logger.Info("tool outputs submitted", "run_id", body.RunID, "run_status", run.Status)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runStatus": run.Status})
}

func (s *Server) openAISession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Upstream == nil {
		jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		return
	}

	sess, err := s.deps.Upstream.CreateRealtimeSession(r.Context(), openai.RealtimeSessionRequest{
		Model:                   s.opts.RealtimeModel,
		InputAudioTranscription: &openai.InputAudioTranscription{Model: s.opts.TranscriptionModel},
		Instructions:            transcriptionInstructions,
		Modalities:              []string{"text"},
		TurnDetection: &openai.TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: 2000,
			CreateResponse:    false,
			InterruptResponse: true,
		},
		Include: []string{"item.input_audio_transcription.logprobs"},
	})
	if err != nil {
		var apiErr *openai.APIError
		switch {
		case errors.As(err, &apiErr):
			s.logger.Error("realtime session rejected upstream", "status", apiErr.StatusCode, "error", err)
			jsonError(w, apiErr.StatusCode, "Failed to create OpenAI transcription session", apiErr.Body)
		case errors.Is(err, openai.ErrNoAPIKey):
			jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		default:
			s.logger.Error("realtime session request failed", "error", err)
			jsonError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	key := sess.EphemeralKey()
	if key == "" {
		s.logger.Error("ephemeral key missing from realtime session", "session_id", sess.ID)
		jsonError(w, http.StatusInternalServerError, "Ephemeral key not found in response")
		return
	}
	s.logger.Info("realtime session created", "session_id", sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"ephemeralKey":   key,
		"sessionId":      sess.ID,
		"sessionDetails": sess.Raw,
	})
}

func (s *Server) submitAudio(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audio == nil {
		jsonError(w, http.StatusInternalServerError, errLLMNotConfigured)
		return
	}
	var sub transcribe.Submission
	if err := decodeJSON(w, r, maxAudioBody, &sub); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	text, err := s.deps.Audio.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, transcribe.ErrNoAudio):
		jsonError(w, http.StatusBadRequest, "No audio data provided")
	case errors.Is(err, transcribe.ErrNoClientID):
		jsonError(w, http.StatusBadRequest, "Client ID not provided")
	case errors.Is(err, transcribe.ErrBadEncoding):
		jsonError(w, http.StatusBadRequest, "Invalid audio data")
	case err != nil:
		jsonError(w, http.StatusInternalServerError, "Transcription failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcription": text})
	}
}
