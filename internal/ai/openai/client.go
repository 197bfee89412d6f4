package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/pkg/logger"
)

// Client handles chat completions against OpenAI-compatible APIs
type Client struct {
	client *goopenai.Client
	logger *logger.Logger
}

// NewClient creates a new OpenAI client. An empty baseURL uses api.openai.com.
func NewClient(apiKey string, logger *logger.Logger, baseURL string, timeout time.Duration) *Client {
	config := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		config.BaseURL = base
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client: goopenai.NewClientWithConfig(config),
		logger: logger.Named("openai"),
	}
}

// ChatCompletion implements ai.ChatProvider
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (*ai.ChatResult, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Temperature: float32(config.Temperature),
		MaxTokens:   config.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if config.JSONOutput {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}

	choice := resp.Choices[0]
	c.logger.Debug("Chat completion finished",
		logger.String("model", resp.Model),
		logger.String("finish_reason", string(choice.FinishReason)),
		logger.Duration("latency", time.Since(start)))

	return &ai.ChatResult{
		Content:      choice.Message.Content,
		FinishReason: finishReason(choice.FinishReason),
		Model:        resp.Model,
	}, nil
}

func finishReason(r goopenai.FinishReason) string {
	switch r {
	case goopenai.FinishReasonStop:
		return ai.FinishStop
	case goopenai.FinishReasonLength:
		return ai.FinishLength
	case goopenai.FinishReasonContentFilter:
		return ai.FinishFilter
	case "":
		return ai.FinishUnknown
	}
	return ai.FinishOther
}
