package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Action is the payload delivered to the tool webhook.
type Action struct {
	SessionID   string `json:"sessionId"`
	Action      string `json:"action"`
	CallingTool string `json:"callingTool"`
	Details     any    `json:"details"`
}

// Webhook posts detected actions to a downstream system (EHR bridge, queue, etc).
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Dispatch posts the action and returns the response status and body.
// A non-2xx status is not an error; err is only set when no response arrived.
func (w *Webhook) Dispatch(ctx context.Context, a Action) (int, string, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return 0, "", fmt.Errorf("marshal action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(respBody), nil
}
