package translation

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/internal/templating"
	"github.com/yegors/co-translate/pkg/logger"
)

type fakeBackend struct {
	resp  Response
	err   error
	panic bool
}

func (f fakeBackend) Translate(ctx context.Context, text, source, target string) (Response, error) {
	if f.panic {
		panic("backend exploded")
	}
	return f.resp, f.err
}

func TestClientNeverReturnsEmpty(t *testing.T) {
	e := newEndpoint(t, http.StatusInternalServerError, "")
	fb := newTestFallback(e.srv.URL)

	backends := map[string]Backend{
		"structured":   fakeBackend{resp: Structured{TranslatedText: "hola"}},
		"plain":        fakeBackend{resp: Plain{Text: "hola"}},
		"mapping":      fakeBackend{resp: Mapping{Fields: map[string]any{"text": "hola"}}},
		"mapping bare": fakeBackend{resp: Mapping{Fields: map[string]any{"foo": "bar"}}},
		"unresolved":   fakeBackend{resp: Unresolved{Repr: "<pending>"}},
		"coroutine":    fakeBackend{resp: Malformed{Raw: "<coroutine object at 0x1>"}},
		"marker":       fakeBackend{resp: Malformed{Raw: "Translated(text=hola, src=en)"}},
		"error":        fakeBackend{err: errors.New("connection reset by peer")},
		"panic":        fakeBackend{panic: true},
		"nil response": fakeBackend{},
		"no backend":   nil,
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			c := NewClient(backend, fb, logger.NewNop())
			got := c.Translate(context.Background(), "where is the train", "en", "es")
			if strings.TrimSpace(got.Text) == "" {
				t.Fatal("empty translation")
			}
		})
	}
}

func TestClientUsesPrimaryWhenUsable(t *testing.T) {
	c := NewClient(fakeBackend{resp: Structured{TranslatedText: "hola"}}, newTestFallback(""), logger.NewNop())
	got := c.Translate(context.Background(), "hello", "en", "es")
	if got.Text != "hola" || got.Method != MethodPrimary {
		t.Fatalf("got %+v", got)
	}
}

func TestClientFallsBackOnBackendError(t *testing.T) {
	c := NewClient(fakeBackend{err: errors.New("503")}, newTestFallback(""), logger.NewNop())
	got := c.Translate(context.Background(), "hello", "en", "hi")
	if got.Text != "नमस्ते" || got.Method != MethodFallback {
		t.Fatalf("got %+v", got)
	}
}

func TestClientWithoutFallback(t *testing.T) {
	c := NewClient(fakeBackend{resp: Unresolved{}}, nil, logger.NewNop())
	got := c.Translate(context.Background(), "hello", "en", "hi")
	if got.Method != MethodFailed || !strings.HasPrefix(got.Text, "Unable to translate text: ") {
		t.Fatalf("got %+v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		result *ai.ChatResult
		want   Response
	}{
		{"json object", &ai.ChatResult{Content: `{"translated_text":"hola"}`, FinishReason: ai.FinishStop}, Structured{TranslatedText: "hola"}},
		{"fenced json", &ai.ChatResult{Content: "```json\n{\"translated_text\": \"hola\"}\n```", FinishReason: ai.FinishStop}, Structured{TranslatedText: "hola"}},
		{"prose wrapped json", &ai.ChatResult{Content: `Sure! {"translated_text": "hola"}`, FinishReason: ai.FinishStop}, Structured{TranslatedText: "hola"}},
		{"json string", &ai.ChatResult{Content: `"hola"`, FinishReason: ai.FinishStop}, Plain{Text: "hola"}},
		{"bare text", &ai.ChatResult{Content: "hola", FinishReason: ai.FinishStop}, Plain{Text: "hola"}},
		{"truncated", &ai.ChatResult{Content: `{"translated_te`, FinishReason: ai.FinishLength}, Unresolved{Repr: "<incomplete completion finish_reason=length>"}},
		{"empty", &ai.ChatResult{Content: "  ", FinishReason: ai.FinishStop}, Unresolved{Repr: "<empty completion>"}},
		{"nil", nil, Unresolved{Repr: "<no completion>"}},
		{"bad json", &ai.ChatResult{Content: `{"translated_text": hola}`, FinishReason: ai.FinishStop}, Malformed{Raw: `{"translated_text": hola}`}},
		{"object repr", &ai.ChatResult{Content: "<object at 0x1>", FinishReason: ai.FinishStop}, Malformed{Raw: "<object at 0x1>"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.result); got != tc.want {
				t.Fatalf("Classify = %#v, want %#v", got, tc.want)
			}
		})
	}

	m, ok := Classify(&ai.ChatResult{Content: `{"text":"hola"}`}).(Mapping)
	if !ok || m.Fields["text"] != "hola" {
		t.Fatalf("expected mapping, got %#v", m)
	}
}

type fakeProvider struct {
	messages []ai.ChatMessage
	config   ai.ChatConfig
	result   *ai.ChatResult
}

func (p *fakeProvider) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (*ai.ChatResult, error) {
	p.messages = messages
	p.config = config
	return p.result, nil
}

func TestLLMBackend(t *testing.T) {
	p := &fakeProvider{result: &ai.ChatResult{Content: `{"translated_text":"bonjour"}`, FinishReason: ai.FinishStop}}
	b := NewLLMBackend(p, templating.NewEngine(logger.NewNop()), LLMConfig{Model: "m", MaxTokens: 100}, logger.NewNop())

	c := NewClient(b, nil, logger.NewNop())
	got := c.Translate(context.Background(), "hello", "en", "fr")
	if got.Text != "bonjour" || got.Method != MethodPrimary {
		t.Fatalf("got %+v", got)
	}

	if len(p.messages) != 2 || p.messages[1].Content != "hello" {
		t.Fatalf("messages = %+v", p.messages)
	}
	if !strings.Contains(p.messages[0].Content, "English (en) to French (fr)") {
		t.Fatalf("system prompt = %q", p.messages[0].Content)
	}
	if !p.config.JSONOutput || p.config.Model != "m" {
		t.Fatalf("config = %+v", p.config)
	}
}

func TestLLMBackendReloadPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	if err := os.WriteFile(path, []byte("first {{.TargetName}}"), 0644); err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{result: &ai.ChatResult{Content: `{"translated_text":"hallo"}`, FinishReason: ai.FinishStop}}
	b := NewLLMBackend(p, templating.NewEngine(logger.NewNop()), LLMConfig{PromptPath: path}, logger.NewNop())

	if _, err := b.Translate(context.Background(), "hello", "en", "de"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if p.messages[0].Content != "first German" {
		t.Fatalf("system prompt = %q", p.messages[0].Content)
	}

	if err := os.WriteFile(path, []byte("second {{.TargetName}}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := b.ReloadPrompt(); err != nil {
		t.Fatalf("ReloadPrompt: %v", err)
	}
	b.Translate(context.Background(), "hello", "en", "de")
	if p.messages[0].Content != "second German" {
		t.Fatalf("system prompt after reload = %q", p.messages[0].Content)
	}

	os.Remove(path)
	if err := b.ReloadPrompt(); err == nil {
		t.Fatal("expected error when the prompt file is gone")
	}
	if b.PromptPath() != path {
		t.Fatalf("PromptPath = %q", b.PromptPath())
	}
}
