package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

type Run struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

// SubmitToolOutputs resumes an Assistants run that is waiting on tool results.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	if threadID == "" || runID == "" {
		return nil, errors.New("openai: thread and run ids are required")
	}

	path := fmt.Sprintf("threads/%s/runs/%s/submit_tool_outputs", url.PathEscape(threadID), url.PathEscape(runID))
	header := http.Header{}
	header.Set("OpenAI-Beta", "assistants=v2")

	raw, err := c.postJSON(ctx, path, map[string]any{"tool_outputs": outputs}, header)
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}

	var run Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}
