package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/internal/languages"
	"github.com/yegors/co-translate/internal/templating"
	"github.com/yegors/co-translate/pkg/logger"
)

// Backend submits one translation request. Its reply shape is not trusted.
type Backend interface {
	Translate(ctx context.Context, text, source, target string) (Response, error)
}

// How a translation was produced
const (
	MethodPrimary  = "primary"
	MethodFallback = "fallback"
	MethodFailed   = "failed"
)

// Translation is the final text plus how it was produced
type Translation struct {
	Text   string `json:"text"`
	Method string `json:"method"`
}

// Client turns any backend reply into a non-empty string, falling back
// once when the reply cannot be interpreted. It never fails.
type Client struct {
	backend  Backend
	fallback *Fallback
	logger   *logger.Logger
}

// NewClient creates a translation client. backend may be nil, in which
// case every request goes to the fallback.
func NewClient(backend Backend, fallback *Fallback, logger *logger.Logger) *Client {
	return &Client{
		backend:  backend,
		fallback: fallback,
		logger:   logger.Named("translation"),
	}
}

// Translate translates text from source to target
func (c *Client) Translate(ctx context.Context, text, source, target string) (t Translation) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Translation panicked", String("panic", fmt.Sprint(r)))
			t = c.viaFallback(ctx, text, source, target)
		}
	}()

	if c.backend == nil {
		return c.viaFallback(ctx, text, source, target)
	}

	resp, err := c.backend.Translate(ctx, text, source, target)
	if err != nil {
		c.logger.Warn("Translation error", String("error", truncate(err.Error(), 50)))
		return c.viaFallback(ctx, text, source, target)
	}

	out, err := Interpret(resp)
	if err != nil {
		c.logger.Info("Backend reply not usable, using fallback",
			String("variant", fmt.Sprintf("%T", resp)),
			Error(err))
		return c.viaFallback(ctx, text, source, target)
	}

	return Translation{Text: out, Method: MethodPrimary}
}

func (c *Client) viaFallback(ctx context.Context, text, source, target string) (t Translation) {
	defer func() {
		if r := recover(); r != nil {
			t = Translation{Text: unableMessage(fmt.Sprint(r)), Method: MethodFailed}
		}
	}()

	if c.fallback == nil {
		return Translation{Text: unableMessage("no fallback translator"), Method: MethodFailed}
	}

	out := c.fallback.Translate(ctx, text, source, target)
	if strings.TrimSpace(out) == "" {
		return Translation{Text: unableMessage("empty fallback result"), Method: MethodFailed}
	}
	return Translation{Text: out, Method: MethodFallback}
}

func unableMessage(reason string) string {
	return fmt.Sprintf("Unable to translate text: %s", truncate(reason, 50))
}

// LLMConfig holds settings for the chat-model backend
type LLMConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	PromptPath  string // empty uses the built-in prompt
}

// LLMBackend translates with a chat model and classifies its reply
type LLMBackend struct {
	provider ai.ChatProvider
	prompts  *templating.Engine
	config   LLMConfig
	logger   *logger.Logger
}

// NewLLMBackend creates a chat-model backend
func NewLLMBackend(provider ai.ChatProvider, prompts *templating.Engine, config LLMConfig, logger *logger.Logger) *LLMBackend {
	return &LLMBackend{
		provider: provider,
		prompts:  prompts,
		config:   config,
		logger:   logger.Named("llm-backend"),
	}
}

// Translate implements Backend
func (b *LLMBackend) Translate(ctx context.Context, text, source, target string) (Response, error) {
	systemPrompt, err := b.prompts.RenderPrompt(b.config.PromptPath, templating.PromptData{
		SourceCode: source,
		SourceName: languages.DisplayName(source),
		TargetCode: target,
		TargetName: languages.DisplayName(target),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	result, err := b.provider.ChatCompletion(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: text},
	}, ai.ChatConfig{
		Model:       b.config.Model,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	return Classify(result), nil
}

// PromptPath returns the configured prompt file, empty for the built-in prompt
func (b *LLMBackend) PromptPath() string {
	return b.config.PromptPath
}

// ReloadPrompt re-reads the prompt file so edits apply without a restart
func (b *LLMBackend) ReloadPrompt() error {
	if err := b.prompts.ReloadTemplate(b.config.PromptPath); err != nil {
		return fmt.Errorf("failed to reload prompt: %w", err)
	}
	return nil
}

// Classify sorts a chat reply into one of the Response variants
func Classify(result *ai.ChatResult) Response {
	if result == nil {
		return Unresolved{Repr: "<no completion>"}
	}
	if !result.Complete() {
		return Unresolved{Repr: fmt.Sprintf("<incomplete completion finish_reason=%s>", result.FinishReason)}
	}

	content := stripFences(strings.TrimSpace(result.Content))
	if content == "" {
		return Unresolved{Repr: "<empty completion>"}
	}

	switch {
	case strings.HasPrefix(content, "{"):
		return classifyObject(content)

	case strings.HasPrefix(content, `"`):
		var s string
		if err := json.Unmarshal([]byte(content), &s); err != nil {
			return Malformed{Raw: content}
		}
		return Plain{Text: s}

	case strings.HasPrefix(content, "<"), strings.Contains(content, "Translated("):
		return Malformed{Raw: content}
	}

	// Models sometimes wrap the object in prose
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx != -1 && endIdx > startIdx {
		if r, ok := classifyObject(content[startIdx : endIdx+1]).(Structured); ok {
			return r
		}
	}

	return Plain{Text: content}
}

func classifyObject(content string) Response {
	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return Malformed{Raw: content}
	}
	if text, ok := fields["translated_text"].(string); ok {
		return Structured{TranslatedText: text}
	}
	return Mapping{Fields: fields}
}

// stripFences removes a surrounding markdown code block
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)
