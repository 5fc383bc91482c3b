package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     int
	LogLevel string
	// LogFormat selects the slog handler: "json" (default) or "text".
	LogFormat string

	DatabaseURL string
	NatsURL     string
	NatsToken   string

	OpenAIAPIKey      string
	OpenAIAPIKeyParam string // SSM parameter name holding the key, used when OpenAIAPIKey is empty
	OpenAIBaseURL     string

	DetectModel        string
	IntentModel        string
	TranslateModel     string
	SummaryModel       string
	RealtimeModel      string
	TranscriptionModel string
	WhisperModel       string

	ToolWebhookURL     string
	RealtimeSigningKey string
	RealtimeTokenTTL   int // seconds

	AllowedOrigins []string
	APIToken       string
	RateLimitRPS   float64
	RateLimitBurst float64
}

func Load() Config {
	return Config{
		Port:      envInt("LINGO_PORT", 8760),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),

		OpenAIAPIKey:      envStr("OPENAI_API_KEY", ""),
		OpenAIAPIKeyParam: envStr("OPENAI_API_KEY_PARAM", ""),
		OpenAIBaseURL:     envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		DetectModel:        envStr("LINGO_DETECT_MODEL", "gpt-4o"),
		IntentModel:        envStr("LINGO_INTENT_MODEL", "gpt-4o-mini"),
		TranslateModel:     envStr("LINGO_TRANSLATE_MODEL", "gpt-4o-mini"),
		SummaryModel:       envStr("LINGO_SUMMARY_MODEL", "gpt-4o"),
		RealtimeModel:      envStr("LINGO_REALTIME_MODEL", "gpt-4o-mini-realtime-preview-2024-12-17"),
		TranscriptionModel: envStr("LINGO_TRANSCRIPTION_MODEL", "gpt-4o-mini-transcribe"),
		WhisperModel:       envStr("LINGO_WHISPER_MODEL", "whisper-1"),

		ToolWebhookURL:     envStr("TOOL_WEBHOOK_URL", ""),
		RealtimeSigningKey: envStr("REALTIME_SIGNING_KEY", ""),
		RealtimeTokenTTL:   envInt("REALTIME_TOKEN_TTL", 3600),

		AllowedOrigins: envList("ALLOWED_ORIGINS"),
		APIToken:       envStr("LINGO_API_TOKEN", ""),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: envFloat("RATE_LIMIT_BURST", 20),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
