package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	keyFetchTimeout = 10 * time.Second
)

// ErrNoAPIKey is returned when neither a key nor a key parameter is configured.
var ErrNoAPIKey = errors.New("openai: API key not configured")

// Getter resolves a named secret, e.g. from SSM Parameter Store.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// APIError captures non-2xx upstream responses with status-aware context.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: api error %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai: api error %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	apiKey   string // static key, immutable after NewClient
	getter   Getter
	keyParam string

	keyMu      sync.Mutex
	fetchedKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithKeyParameter makes the client fetch its key from a parameter store on
// first use. A static key passed to NewClient takes precedence.
func WithKeyParameter(getter Getter, name string) Option {
	return func(c *Client) {
		c.getter = getter
		c.keyParam = strings.TrimSpace(name)
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has any way to obtain a key.
func (c *Client) Configured() bool {
	return c.apiKey != "" || (c.getter != nil && c.keyParam != "")
}

// resolveAPIKey returns the static key, or fetches the key parameter. Only a
// successful fetch is cached; a failed one is retried on the next call.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.getter == nil || c.keyParam == "" {
		return "", ErrNoAPIKey
	}

	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.fetchedKey != "" {
		return c.fetchedKey, nil
	}

	// The fetch outlives the request that triggered it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyFetchTimeout)
	defer cancel()
	raw, err := c.getter.GetParameter(fetchCtx, c.keyParam)
	if err != nil {
		return "", fmt.Errorf("openai: fetch key parameter: %w", err)
	}
	key, err := parseKeyParameter(raw)
	if err != nil {
		return "", err
	}
	c.fetchedKey = key
	return key, nil
}

// parseKeyParameter accepts either the bare key or {"token":"..."}.
func parseKeyParameter(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("openai: unmarshal key parameter: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("openai: API key parameter is empty")
	}
	return raw, nil
}

func endpoint(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// postJSON marshals body, sends it to path and returns the raw response.
func (c *Client) postJSON(ctx context.Context, path string, body any, header http.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(c.baseURL, path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	apiKey, err := c.resolveAPIKey(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}
	return respBody, nil
}
