package translate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Undetermined is the ISO 639 code for an unknown language.
const Undetermined = "und"

var languageCode = regexp.MustCompile(`^[a-z]{2}$`)

// LLM is the completion call the pipeline depends on.
type LLM interface {
	Complete(ctx context.Context, model, system, user string, temperature float64, maxTokens int) (string, error)
}

// Models names the model used at each step.
type Models struct {
	Detect    string
	Intent    string
	Translate string
}

// Error carries an HTTP status for failures the caller caused.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Result is the outcome of one translated turn.
type Result struct {
	OriginalTranscript string `json:"original_transcript"`
	TranslatedText     string `json:"translated_text"`
	SourceLanguage     string `json:"source_language"`
	TargetLanguage     string `json:"target_language"`
	IsRepeatRequest    bool   `json:"is_repeat_request"`
	Error              string `json:"error,omitempty"`
}

type Translator struct {
	llm    LLM
	models Models
	logger *slog.Logger
}

func New(llm LLM, models Models, logger *slog.Logger) *Translator {
	return &Translator{llm: llm, models: models, logger: logger}
}

// Translate detects the source language when needed, checks whether the
// speaker is asking for a repeat, and translates English<->Spanish.
func (t *Translator) Translate(ctx context.Context, transcript, sourceLanguage string) (*Result, error) {
	source := strings.TrimSpace(sourceLanguage)

	if source == "" || strings.EqualFold(source, Undetermined) {
		t.logger.Warn("source language missing, detecting",
			"source_language", sourceLanguage,
			"text", preview(transcript),
		)
		detected, ok := t.DetectLanguage(ctx, transcript)
		if !ok || detected == Undetermined {
			t.logger.Error("language detection failed", "text", transcript, "detected", detected)
			return nil, &Error{
				Status:  400,
				Message: fmt.Sprintf("Failed to auto-detect language for translation. Original text: %q", transcript),
			}
		}
		source = detected
		t.logger.Info("detected language", "language", source)
	}

	repeat := t.IsRepeatRequest(ctx, transcript, source)

	res := &Result{
		OriginalTranscript: transcript,
		TranslatedText:     transcript,
		SourceLanguage:     source,
		TargetLanguage:     source,
		IsRepeatRequest:    repeat,
	}
	if repeat {
		t.logger.Info("repeat request, skipping translation", "text", preview(transcript))
		return res, nil
	}

	var prompt string
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "en"):
		res.TargetLanguage = "es"
		prompt = englishToSpanishPrompt
	case strings.HasPrefix(lower, "es"):
		res.TargetLanguage = "en"
		prompt = spanishToEnglishPrompt
	default:
		t.logger.Error("unsupported source language", "source_language", source)
		res.Error = "Unsupported source language for translation: " + source
		return res, nil
	}

	t.logger.Debug("translating", "from", source, "to", res.TargetLanguage, "text", preview(transcript))
	translated, err := t.llm.Complete(ctx, t.models.Translate, prompt, transcript, 0.3, 0)
	if err != nil {
		return nil, fmt.Errorf("translate %s to %s: %w", source, res.TargetLanguage, err)
	}
	if translated == "" || translated == transcript {
		t.logger.Warn("translation empty or identical to input", "text", preview(transcript))
	}
	if translated != "" {
		res.TranslatedText = translated
	}
	return res, nil
}

// DetectLanguage returns a two-letter code or "und". ok is false when the
// model could not be reached.
func (t *Translator) DetectLanguage(ctx context.Context, text string) (code string, ok bool) {
	out, err := t.llm.Complete(ctx, t.models.Detect, detectSystemPrompt, fmt.Sprintf(detectUserPrompt, text), 0, 10)
	if err != nil {
		t.logger.Error("language detection call failed", "error", err)
		return "", false
	}
	code = strings.ToLower(strings.TrimSpace(out))
	if languageCode.MatchString(code) || code == Undetermined {
		return code, true
	}
	t.logger.Warn("invalid language code from model, using und", "code", code, "text", preview(text))
	return Undetermined, true
}

// IsRepeatRequest asks the model whether the speaker wants the last
// statement repeated. Failures count as "no".
func (t *Translator) IsRepeatRequest(ctx context.Context, text, language string) bool {
	out, err := t.llm.Complete(ctx, t.models.Intent, repeatSystemPrompt, fmt.Sprintf(repeatUserPrompt, language, text), 0.1, 5)
	if err != nil {
		t.logger.Error("intent classification failed", "error", err)
		return false
	}
	answer := strings.ToUpper(strings.TrimSpace(out))
	t.logger.Debug("repeat intent", "text", text, "answer", answer)
	return answer == "YES"
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}
