package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
	"github.com/MikeSquared-Agency/lingo/internal/openai"
)

const (
	noDialogueSummary = "No user or assistant messages found to summarize."
	unparsedSummary   = "Failed to parse summary from LLM."
	missingSummary    = "Summary not provided by LLM."
)

// ChatClient is the completion call the summarizer depends on.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
}

// Dispatcher delivers a detected action.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Action) (status int, body string, err error)
}

// Result is the summary and the actions the model reports having taken.
type Result struct {
	Summary string `json:"summary"`
	Actions []any  `json:"actions"`
}

// ActionsJSON encodes the actions for storage.
func (r *Result) ActionsJSON() json.RawMessage {
	data, err := json.Marshal(r.Actions)
	if err != nil || r.Actions == nil {
		return json.RawMessage("[]")
	}
	return data
}

type Summarizer struct {
	llm     ChatClient
	model   string
	webhook Dispatcher
	logger  *slog.Logger
}

// New returns a Summarizer. webhook may be nil, in which case tool calls are
// acknowledged to the model as not configured.
func New(llm ChatClient, model string, webhook Dispatcher, logger *slog.Logger) *Summarizer {
	return &Summarizer{llm: llm, model: model, webhook: webhook, logger: logger}
}

// Summarize asks the model to analyze the session, runs any lab-order or
// follow-up tool calls it makes, and returns the final summary.
func (s *Summarizer) Summarize(ctx context.Context, sessionID string, turns []conversation.Turn) (*Result, error) {
	messages := []openai.Message{{Role: "system", Content: systemInstruction}}

	var dialogue []conversation.Turn
	for _, t := range turns {
		if t.IsDialogue() {
			dialogue = append(dialogue, t)
		}
	}
	if len(dialogue) == 0 {
		return &Result{Summary: noDialogueSummary, Actions: []any{}}, nil
	}

	messages = append(messages, openai.Message{Role: "user", Content: primingMessage})
	for _, t := range dialogue {
		messages = append(messages, openai.Message{Role: string(t.Actor), Content: t.Text})
	}

	s.logger.Info("summarizing session", "session_id", sessionID, "turns", len(dialogue))
	first, err := s.llm.ChatCompletion(ctx, openai.ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  "auto",
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("summary completion: %w", err)
	}
	reply, err := first.FirstMessage()
	if err != nil {
		return nil, fmt.Errorf("summary completion: %w", err)
	}

	content := reply.Content
	if len(reply.ToolCalls) > 0 {
		s.logger.Info("model requested tool calls", "session_id", sessionID, "count", len(reply.ToolCalls))
		messages = append(messages, reply)
		for _, tc := range reply.ToolCalls {
			messages = append(messages, openai.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    s.runTool(ctx, sessionID, tc),
			})
		}
		messages = append(messages, openai.Message{Role: "user", Content: finalSummaryRequest})

		second, err := s.llm.ChatCompletion(ctx, openai.ChatRequest{
			Model:          s.model,
			Messages:       messages,
			Temperature:    openai.Float(0.3),
			ResponseFormat: openai.JSONObject,
		})
		if err != nil {
			return nil, fmt.Errorf("final summary completion: %w", err)
		}
		final, err := second.FirstMessage()
		if err != nil {
			return nil, fmt.Errorf("final summary completion: %w", err)
		}
		content = final.Content
	}

	if content == "" {
		return nil, errors.New("LLM returned empty content")
	}
	s.logger.Debug("raw summary content", "session_id", sessionID, "content", content)

	return s.parse(sessionID, content), nil
}

// runTool executes one tool call and returns the text reported back to the model.
func (s *Summarizer) runTool(ctx context.Context, sessionID string, tc openai.ToolCall) string {
	name := tc.Function.Name
	if !knownTool(name) {
		s.logger.Warn("unknown tool requested", "tool", name, "session_id", sessionID)
		return fmt.Sprintf("Unknown tool requested: %s.", name)
	}

	var details any = map[string]any{"details": "No details parsed."}
	if tc.Function.Arguments != "" {
		var parsed any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &parsed); err != nil {
			s.logger.Error("failed to parse tool arguments",
				"tool", name,
				"session_id", sessionID,
				"arguments", tc.Function.Arguments,
				"error", err,
			)
		} else {
			details = parsed
		}
	}

	if s.webhook == nil {
		s.logger.Warn("tool webhook not configured", "tool", name, "session_id", sessionID)
		return fmt.Sprintf("Webhook for '%s' is not configured.", name)
	}

	status, body, err := s.webhook.Dispatch(ctx, Action{
		SessionID:   sessionID,
		Action:      name,
		CallingTool: name + "_tool",
		Details:     details,
	})
	if err != nil {
		s.logger.Error("webhook call failed", "action", name, "session_id", sessionID, "error", err)
		return fmt.Sprintf("Error calling webhook for %s: %v", name, err)
	}
	if status < 200 || status >= 300 {
		s.logger.Error("webhook returned error status", "action", name, "session_id", sessionID, "status", status)
		return fmt.Sprintf("Webhook for '%s' failed with status: %d. Response: %s", name, status, body)
	}
	s.logger.Info("webhook succeeded", "action", name, "session_id", sessionID, "status", status)
	return fmt.Sprintf("Webhook for '%s' called successfully. Status: %d.", name, status)
}

func (s *Summarizer) parse(sessionID, content string) *Result {
	res := &Result{Summary: unparsedSummary, Actions: []any{}}

	// Fields are decoded one at a time so a malformed summary keeps the actions.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil || fields == nil {
		s.logger.Error("failed to parse summary JSON", "session_id", sessionID, "content", content, "error", err)
		return res
	}

	res.Summary = missingSummary
	for _, key := range []string{"conversation_summary", "summary"} {
		var v string
		if json.Unmarshal(fields[key], &v) == nil && v != "" {
			res.Summary = v
			break
		}
	}

	raw := fields["actions_taken"]
	if len(raw) == 0 || string(raw) == "null" {
		raw = fields["actions"]
	}
	var actions []any
	if len(raw) > 0 && json.Unmarshal(raw, &actions) == nil && actions != nil {
		res.Actions = actions
	}
	return res
}
