package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultTranscriptionModel = "whisper-1"

type TranscriptionRequest struct {
	Audio    []byte
	Filename string // defaults to audio.webm
	Model    string // defaults to whisper-1
	Language string // ISO 639-1; empty lets the model detect
}

// Transcribe uploads an audio clip and returns the trimmed transcript.
func (c *Client) Transcribe(ctx context.Context, tr TranscriptionRequest) (string, error) {
	if len(tr.Audio) == 0 {
		return "", errors.New("openai: audio must not be empty")
	}
	if tr.Filename == "" {
		tr.Filename = "audio.webm"
	}
	if tr.Model == "" {
		tr.Model = defaultTranscriptionModel
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", tr.Filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(tr.Audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := mw.WriteField("model", tr.Model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if tr.Language != "" {
		if err := mw.WriteField("language", tr.Language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(c.baseURL, "audio/transcriptions"), &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unmarshal transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
