package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// JSONObject asks the model for a single JSON object reply.
var JSONObject = &ResponseFormat{Type: "json_object"}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Tools          []Tool          `json:"tools,omitempty"`
	ToolChoice     string          `json:"tool_choice,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// FirstMessage returns the first choice's message.
func (r *ChatResponse) FirstMessage() (Message, error) {
	if len(r.Choices) == 0 {
		return Message{}, errors.New("openai: no choices in response")
	}
	return r.Choices[0].Message, nil
}

// Float returns a pointer to v, for optional request fields where zero is meaningful.
func Float(v float64) *float64 {
	return &v
}

// ChatCompletion sends a chat completions request.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		return nil, errors.New("openai: model must not be empty")
	}

	raw, err := c.postJSON(ctx, "chat/completions", req, nil)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var resp ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}
	return &resp, nil
}

// Complete runs a single system+user exchange and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, model, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.ChatCompletion(ctx, ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: Float(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	msg, err := resp.FirstMessage()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}
