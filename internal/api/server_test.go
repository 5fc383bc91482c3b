package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
	"github.com/MikeSquared-Agency/lingo/internal/openai"
	"github.com/MikeSquared-Agency/lingo/internal/summarize"
	"github.com/MikeSquared-Agency/lingo/internal/transcribe"
	"github.com/MikeSquared-Agency/lingo/internal/translate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(deps Deps) *Server {
	return NewServer(Options{Logger: discardLogger()}, deps)
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// fakes

type fakeStore struct {
	pingErr error

	turns     []conversation.Turn
	inserted  []conversation.Turn
	insertErr error
	duplicate bool

	summary    *conversation.Summary
	summaryErr error
	snippets   []conversation.SummarySnippet

	legacy      []conversation.LegacyMessage
	legacySaved []conversation.LegacyItem
	deleted     string
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) InsertTurn(_ context.Context, t conversation.Turn) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.inserted = append(f.inserted, t)
	return !f.duplicate, nil
}

func (f *fakeStore) ListTurns(context.Context, string) ([]conversation.Turn, error) {
	return f.turns, nil
}

func (f *fakeStore) GetSummary(context.Context, string) (*conversation.Summary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeStore) ListSummaries(context.Context) ([]conversation.SummarySnippet, error) {
	return f.snippets, nil
}

func (f *fakeStore) InsertLegacyMessage(_ context.Context, _ string, item conversation.LegacyItem) error {
	f.legacySaved = append(f.legacySaved, item)
	return nil
}

func (f *fakeStore) ListLegacyMessages(context.Context, string) ([]conversation.LegacyMessage, error) {
	return f.legacy, nil
}

func (f *fakeStore) DeleteLegacyMessages(_ context.Context, id string) (int64, error) {
	f.deleted = id
	return 2, nil
}

type fakeTranslator struct {
	result *translate.Result
	err    error
}

func (f *fakeTranslator) Translate(_ context.Context, transcript, src string) (*translate.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSessions struct {
	result *summarize.Result
	err    error
	got    string
}

func (f *fakeSessions) SummarizeSession(_ context.Context, id string) (*summarize.Result, error) {
	f.got = id
	return f.result, f.err
}

type fakeUpstream struct {
	session    *openai.RealtimeSession
	sessionErr error
	gotSession openai.RealtimeSessionRequest

	run    *openai.Run
	runErr error
}

func (f *fakeUpstream) CreateRealtimeSession(_ context.Context, req openai.RealtimeSessionRequest) (*openai.RealtimeSession, error) {
	f.gotSession = req
	return f.session, f.sessionErr
}

func (f *fakeUpstream) SubmitToolOutputs(context.Context, string, string, []openai.ToolOutput) (*openai.Run, error) {
	return f.run, f.runErr
}

type fakeAudio struct {
	text string
	err  error
}

func (f *fakeAudio) Submit(context.Context, transcribe.Submission) (string, error) {
	return f.text, f.err
}

type fakeEvents struct {
	subjects []string
}

func (f *fakeEvents) Publish(subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

type fakeBus struct{ up bool }

func (f fakeBus) Connected() bool { return f.up }

// server

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(Deps{})

	w := do(t, srv, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(Deps{
		Store:      &fakeStore{},
		Bus:        fakeBus{up: false},
		Translator: &fakeTranslator{},
	})

	w := do(t, srv, "GET", "/api/v1/lingo/status", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "lingo" {
		t.Errorf("expected agent lingo, got %q", body["agent"])
	}
	if body["database"] != "up" || body["nats"] != "down" || body["llm"] != "configured" || body["realtime"] != "disabled" {
		t.Errorf("unexpected dependency status: %v", body)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected degraded, got %q", body["status"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(Deps{})

	w := do(t, srv, "GET", "/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	srv := NewServer(Options{Logger: discardLogger(), AllowedOrigins: []string{"https://app.example"}}, Deps{})

	req := httptest.NewRequest("OPTIONS", "/api/messages", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code < 200 || w.Code >= 300 {
		t.Errorf("expected 2xx preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("did not expect CORS header for unknown origin")
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected CORS header on simple request, got %q", got)
	}
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	srv := NewServer(Options{Logger: discardLogger(), AllowedOrigins: []string{"*"}}, Deps{})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("wildcard origin must not enable CORS")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	st := &fakeStore{}
	srv := NewServer(Options{Logger: discardLogger(), APIToken: "sekret"}, Deps{Store: st, Tokens: stubTokens{}})

	w := do(t, srv, "GET", "/api/summaries", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/summaries", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}

	if w := do(t, srv, "GET", "/api/realtime-auth", ""); w.Code != http.StatusOK {
		t.Errorf("realtime auth should bypass bearer auth, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(Options{Logger: discardLogger(), RateLimitRPS: 0.001, RateLimitBurst: 2}, Deps{})

	for i := 0; i < 2; i++ {
		if w := do(t, srv, "POST", "/api/translate-text", `{}`); w.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i)
		}
	}
	w := do(t, srv, "POST", "/api/translate-text", `{}`)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if w := do(t, srv, "GET", "/api/summaries", ""); w.Code == http.StatusTooManyRequests {
		t.Error("database routes should not be rate limited")
	}
}
