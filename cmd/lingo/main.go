package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/lingo/internal/api"
	"github.com/MikeSquared-Agency/lingo/internal/config"
	"github.com/MikeSquared-Agency/lingo/internal/hermes"
	"github.com/MikeSquared-Agency/lingo/internal/openai"
	"github.com/MikeSquared-Agency/lingo/internal/paramstore"
	"github.com/MikeSquared-Agency/lingo/internal/processor"
	"github.com/MikeSquared-Agency/lingo/internal/realtime"
	"github.com/MikeSquared-Agency/lingo/internal/store"
	"github.com/MikeSquared-Agency/lingo/internal/summarize"
	"github.com/MikeSquared-Agency/lingo/internal/transcribe"
	"github.com/MikeSquared-Agency/lingo/internal/translate"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("lingo starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deps api.Deps

	// Database (optional; routes that need it answer 500 without it)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		deps.Store = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, persistence disabled")
	}

	// NATS/Hermes
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		var err error
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		deps.Events = hermesClient
		deps.Bus = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, realtime transcripts disabled")
	}

	// OpenAI client
	llm, err := newLLM(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up openai client", "error", err)
		os.Exit(1)
	}

	if llm != nil {
		deps.Translator = translate.New(llm, translate.Models{
			Detect:    cfg.DetectModel,
			Intent:    cfg.IntentModel,
			Translate: cfg.TranslateModel,
		}, slog.Default())
		deps.Upstream = llm

		var publisher transcribe.Publisher
		if hermesClient != nil {
			publisher = hermesClient
		}
		deps.Audio = transcribe.New(llm, publisher, cfg.WhisperModel, slog.Default())

		var webhook summarize.Dispatcher
		if cfg.ToolWebhookURL != "" {
			webhook = summarize.NewWebhook(cfg.ToolWebhookURL)
		} else {
			slog.Warn("TOOL_WEBHOOK_URL not set, lab orders and follow-ups will not be dispatched")
		}
		summarizer := summarize.New(llm, cfg.SummaryModel, webhook, slog.Default())

		if db != nil {
			var events processor.Publisher
			if hermesClient != nil {
				events = hermesClient
			}
			pipeline := processor.New(db, summarizer, events, slog.Default())
			defer pipeline.Wait()
			deps.Sessions = pipeline

			if hermesClient != nil {
				if err := hermesClient.QueueSubscribe(hermes.SubjectSessionClosed, "lingo", pipeline.HandleSessionClosed); err != nil {
					slog.Error("failed to subscribe to session close events", "error", err)
					os.Exit(1)
				}
			}
		}
		slog.Info("openai client ready", "summary_model", cfg.SummaryModel, "translate_model", cfg.TranslateModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, LLM routes disabled")
	}

	// Browser realtime hub
	var hub *realtime.Hub
	if cfg.RealtimeSigningKey != "" && hermesClient != nil {
		tokens, err := realtime.NewTokenIssuer(cfg.RealtimeSigningKey, time.Duration(cfg.RealtimeTokenTTL)*time.Second)
		if err != nil {
			slog.Error("invalid realtime signing key", "error", err)
			os.Exit(1)
		}
		hub = realtime.NewHub(hermesClient, hermesClient, tokens, cfg.AllowedOrigins, slog.Default())
		defer hub.Close()
		deps.Tokens = tokens
		deps.Realtime = http.HandlerFunc(hub.ServeWS)
		slog.Info("realtime hub ready")
	} else {
		slog.Warn("realtime hub disabled (needs REALTIME_SIGNING_KEY and NATS)")
	}

	// HTTP API
	srv := api.NewServer(api.Options{
		APIToken:           cfg.APIToken,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		RealtimeModel:      cfg.RealtimeModel,
		TranscriptionModel: cfg.TranscriptionModel,
		Logger:             slog.Default(),
	}, deps)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("API server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Announce registration
	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectAgentRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"database":  db != nil,
			"llm":       llm != nil,
			"realtime":  hub != nil,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("lingo ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	cancel()
	slog.Info("lingo stopped")
}

// newLLM returns nil when no key source is configured.
func newLLM(ctx context.Context, cfg config.Config) (*openai.Client, error) {
	opts := []openai.Option{openai.WithBaseURL(cfg.OpenAIBaseURL)}
	if cfg.OpenAIAPIKey == "" && cfg.OpenAIAPIKeyParam != "" {
		ps, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter store: %w", err)
		}
		opts = append(opts, openai.WithKeyParameter(ps, cfg.OpenAIAPIKeyParam))
		slog.Info("openai key will be read from parameter store", "parameter", cfg.OpenAIAPIKeyParam)
	}
	client := openai.NewClient(cfg.OpenAIAPIKey, opts...)
	if !client.Configured() {
		return nil, nil
	}
	return client, nil
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
