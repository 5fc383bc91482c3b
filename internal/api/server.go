package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/lingo/internal/conversation"
	"github.com/MikeSquared-Agency/lingo/internal/openai"
	"github.com/MikeSquared-Agency/lingo/internal/realtime"
	"github.com/MikeSquared-Agency/lingo/internal/summarize"
	"github.com/MikeSquared-Agency/lingo/internal/transcribe"
	"github.com/MikeSquared-Agency/lingo/internal/translate"
)

type Store interface {
	Ping(ctx context.Context) error
	InsertTurn(ctx context.Context, t conversation.Turn) (bool, error)
	ListTurns(ctx context.Context, sessionID string) ([]conversation.Turn, error)
	GetSummary(ctx context.Context, sessionID string) (*conversation.Summary, error)
	ListSummaries(ctx context.Context) ([]conversation.SummarySnippet, error)
	InsertLegacyMessage(ctx context.Context, sessionID string, item conversation.LegacyItem) error
	ListLegacyMessages(ctx context.Context, sessionID string) ([]conversation.LegacyMessage, error)
	DeleteLegacyMessages(ctx context.Context, sessionID string) (int64, error)
}

type Translator interface {
	Translate(ctx context.Context, transcript, sourceLanguage string) (*translate.Result, error)
}

type SessionSummarizer interface {
	SummarizeSession(ctx context.Context, sessionID string) (*summarize.Result, error)
}

// Upstream is the subset of the OpenAI client the routes call directly.
type Upstream interface {
	CreateRealtimeSession(ctx context.Context, req openai.RealtimeSessionRequest) (*openai.RealtimeSession, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) (*openai.Run, error)
}

type AudioSubmitter interface {
	Submit(ctx context.Context, sub transcribe.Submission) (string, error)
}

type TokenIssuer interface {
	Issue(clientID string, capability realtime.Capability) (realtime.TokenRequest, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

type Connectivity interface {
	Connected() bool
}

// Deps are the backing services. A nil field makes the routes that need it
// answer 500 "... not configured".
type Deps struct {
	Store      Store
	Translator Translator
	Sessions   SessionSummarizer
	Upstream   Upstream
	Audio      AudioSubmitter
	Tokens     TokenIssuer
	Realtime   http.Handler
	Events     Publisher
	Bus        Connectivity
}

type Options struct {
	APIToken           string
	AllowedOrigins     []string
	RateLimitRPS       float64
	RateLimitBurst     float64
	RealtimeModel      string
	TranscriptionModel string
	Logger             *slog.Logger
}

type Server struct {
	router *chi.Mux
	deps   Deps
	opts   Options
	logger *slog.Logger
}

func NewServer(opts Options, deps Deps) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RealtimeModel == "" {
		opts.RealtimeModel = defaultRealtimeModel
	}
	if opts.TranscriptionModel == "" {
		opts.TranscriptionModel = defaultTranscriptionModel
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeaders)
	if c := corsHandler(opts.AllowedOrigins); c != nil {
		router.Use(c)
	}

	s := &Server{
		router: router,
		deps:   deps,
		opts:   opts,
		logger: opts.Logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/lingo/status", s.status)

	limit := rateLimit(opts.RateLimitRPS, opts.RateLimitBurst)

	router.Route("/api", func(r chi.Router) {
		// No bearer auth: the websocket authenticates with its signed token.
		r.Get("/realtime-auth", s.realtimeAuth)
		r.Get("/realtime", s.realtimeSocket)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(opts.APIToken))

			r.Get("/messages", s.listTurns)
			r.Post("/messages", s.saveTurn)
			r.Get("/summary", s.getSummary)
			r.Get("/summaries", s.listSummaries)

			r.Get("/c", s.listLegacy)
			r.Post("/c", s.saveLegacy)
			r.Delete("/c", s.deleteLegacy)

			r.Group(func(r chi.Router) {
				if limit != nil {
					r.Use(limit)
				}
				r.Post("/translate-text", s.translateText)
				r.Post("/summarize-session", s.summarizeSession)
				r.Post("/submit-tool-outputs", s.submitToolOutputs)
				r.Post("/openai-session", s.openAISession)
				r.Post("/submit-audio", s.submitAudio)
			})
		})
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"agent":    "lingo",
		"status":   "ok",
		"database": "disabled",
		"nats":     "disabled",
		"llm":      "disabled",
		"realtime": "disabled",
	}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		body["database"] = "up"
		if err := s.deps.Store.Ping(ctx); err != nil {
			body["database"] = "down"
			body["status"] = "degraded"
		}
	}
	if s.deps.Bus != nil {
		body["nats"] = "up"
		if !s.deps.Bus.Connected() {
			body["nats"] = "down"
			body["status"] = "degraded"
		}
	}
	if s.deps.Translator != nil {
		body["llm"] = "configured"
	}
	if s.deps.Tokens != nil && s.deps.Realtime != nil {
		body["realtime"] = "configured"
	}
	writeJSON(w, http.StatusOK, body)
}
