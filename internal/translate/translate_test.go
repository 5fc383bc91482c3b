package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	model       string
	system      string
	user        string
	temperature float64
	maxTokens   int
}

// fakeLLM answers by the system prompt it receives.
type fakeLLM struct {
	detect    string
	detectErr error
	repeat    string
	repeatErr error
	translate string
	transErr  error
	calls     []call
}

func (f *fakeLLM) Complete(_ context.Context, model, system, user string, temperature float64, maxTokens int) (string, error) {
	f.calls = append(f.calls, call{model, system, user, temperature, maxTokens})
	switch system {
	case detectSystemPrompt:
		return f.detect, f.detectErr
	case repeatSystemPrompt:
		return f.repeat, f.repeatErr
	default:
		return f.translate, f.transErr
	}
}

func (f *fakeLLM) systems() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.system
	}
	return out
}

var testModels = Models{Detect: "detect-model", Intent: "intent-model", Translate: "translate-model"}

func TestTranslate_EnglishToSpanish(t *testing.T) {
	llm := &fakeLLM{repeat: "NO", translate: "¿Tiene dolor?"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Are you in pain?", "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetLanguage != "es" {
		t.Errorf("expected target es, got %q", res.TargetLanguage)
	}
	if res.SourceLanguage != "en-US" {
		t.Errorf("expected source en-US, got %q", res.SourceLanguage)
	}
	if res.TranslatedText != "¿Tiene dolor?" {
		t.Errorf("unexpected translation %q", res.TranslatedText)
	}
	if res.IsRepeatRequest {
		t.Error("expected no repeat request")
	}
	if len(llm.calls) != 2 {
		t.Fatalf("expected intent + translate calls, got %d", len(llm.calls))
	}
	if llm.calls[1].system != englishToSpanishPrompt || llm.calls[1].model != "translate-model" {
		t.Errorf("unexpected translate call: %+v", llm.calls[1])
	}
	if llm.calls[1].temperature != 0.3 {
		t.Errorf("expected translate temperature 0.3, got %v", llm.calls[1].temperature)
	}
	if llm.calls[0].temperature != 0.1 || llm.calls[0].maxTokens != 5 {
		t.Errorf("unexpected intent call params: %+v", llm.calls[0])
	}
}

func TestTranslate_SpanishToEnglish(t *testing.T) {
	llm := &fakeLLM{repeat: "no", translate: "My head hurts"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Me duele la cabeza", "ES")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetLanguage != "en" {
		t.Errorf("expected target en, got %q", res.TargetLanguage)
	}
	if llm.calls[1].system != spanishToEnglishPrompt {
		t.Errorf("expected spanish->english prompt, got %q", llm.calls[1].system)
	}
}

func TestTranslate_DetectsLanguage(t *testing.T) {
	llm := &fakeLLM{detect: " ES\n", repeat: "NO", translate: "Hello"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Hola", "und")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SourceLanguage != "es" || res.TargetLanguage != "en" {
		t.Errorf("expected es->en, got %s->%s", res.SourceLanguage, res.TargetLanguage)
	}
	first := llm.calls[0]
	if first.system != detectSystemPrompt || first.temperature != 0 || first.maxTokens != 10 || first.model != "detect-model" {
		t.Errorf("unexpected detect call: %+v", first)
	}
	if !strings.Contains(first.user, `"Hola"`) {
		t.Errorf("expected quoted text in detect prompt, got %q", first.user)
	}
}

func TestTranslate_DetectionFails(t *testing.T) {
	cases := map[string]*fakeLLM{
		"undetermined": {detect: "und"},
		"invalid code": {detect: "Spanish"},
		"call error":   {detectErr: errors.New("timeout")},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			tr := New(llm, testModels, discardLogger())
			_, err := tr.Translate(context.Background(), "mm", "")

			var terr *Error
			if !errors.As(err, &terr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if terr.Status != 400 {
				t.Errorf("expected status 400, got %d", terr.Status)
			}
			if !strings.Contains(terr.Message, "Failed to auto-detect language") {
				t.Errorf("unexpected message %q", terr.Message)
			}
			if len(llm.calls) != 1 {
				t.Errorf("expected only the detect call, got %v", llm.systems())
			}
		})
	}
}

func TestTranslate_RepeatRequest(t *testing.T) {
	llm := &fakeLLM{repeat: "YES"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "¿Puede repetirlo?", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsRepeatRequest {
		t.Error("expected repeat request")
	}
	if res.TargetLanguage != "es" {
		t.Errorf("expected target to equal source, got %q", res.TargetLanguage)
	}
	if res.TranslatedText != "¿Puede repetirlo?" {
		t.Errorf("expected untranslated text, got %q", res.TranslatedText)
	}
	if len(llm.calls) != 1 {
		t.Errorf("expected no translate call, got %v", llm.systems())
	}
}

func TestTranslate_IntentErrorMeansNoRepeat(t *testing.T) {
	llm := &fakeLLM{repeatErr: errors.New("boom"), translate: "Hola"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Hello", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsRepeatRequest {
		t.Error("expected classification failure to mean no repeat")
	}
	if res.TranslatedText != "Hola" {
		t.Errorf("expected translation to proceed, got %q", res.TranslatedText)
	}
}

func TestTranslate_UnsupportedLanguage(t *testing.T) {
	llm := &fakeLLM{repeat: "NO"}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Bonjour", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "Unsupported source language for translation: fr" {
		t.Errorf("unexpected error field %q", res.Error)
	}
	if res.TargetLanguage != "fr" || res.TranslatedText != "Bonjour" {
		t.Errorf("expected passthrough, got %+v", res)
	}
}

func TestTranslate_EmptyTranslationFallsBack(t *testing.T) {
	llm := &fakeLLM{repeat: "NO", translate: ""}
	tr := New(llm, testModels, discardLogger())

	res, err := tr.Translate(context.Background(), "Hello", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != "Hello" {
		t.Errorf("expected fallback to input, got %q", res.TranslatedText)
	}
}

func TestTranslate_TranslationCallError(t *testing.T) {
	llm := &fakeLLM{repeat: "NO", transErr: errors.New("upstream 500")}
	tr := New(llm, testModels, discardLogger())

	_, err := tr.Translate(context.Background(), "Hello", "en")
	if err == nil {
		t.Fatal("expected error")
	}
	var terr *Error
	if errors.As(err, &terr) {
		t.Errorf("translation failures must not carry a client status, got %d", terr.Status)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short"); got != "short" {
		t.Errorf("expected short text unchanged, got %q", got)
	}
	long := strings.Repeat("ñ", 60)
	got := preview(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 53 {
		t.Errorf("unexpected preview %q", got)
	}
}
