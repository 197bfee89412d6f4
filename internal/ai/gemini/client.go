package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/pkg/logger"
	"google.golang.org/genai"
)

// Client handles chat completions against the Gemini API
type Client struct {
	client *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini client. baseURL is only set for tests and proxies.
func NewClient(ctx context.Context, apiKey string, logger *logger.Logger, baseURL string, timeout time.Duration) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client: client,
		logger: logger.Named("gemini"),
	}, nil
}

// ChatCompletion implements ai.ChatProvider
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (*ai.ChatResult, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(config.Temperature)),
	}
	if config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(config.MaxTokens)
	}
	if config.JSONOutput {
		genConfig.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			genConfig.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, config.Model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	reason := finishReason(resp.Candidates[0].FinishReason)
	c.logger.Debug("Chat completion finished",
		logger.String("model", config.Model),
		logger.String("finish_reason", reason),
		logger.Duration("latency", time.Since(start)))

	return &ai.ChatResult{
		Content:      resp.Text(),
		FinishReason: reason,
		Model:        config.Model,
	}, nil
}

func finishReason(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonStop:
		return ai.FinishStop
	case genai.FinishReasonMaxTokens:
		return ai.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return ai.FinishFilter
	case genai.FinishReasonUnspecified, "":
		return ai.FinishUnknown
	}
	return ai.FinishOther
}
