package ai

import (
	"context"
)

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatConfig holds configuration for chat completions
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	JSONOutput  bool // ask the provider for a JSON object response
}

// Normalized finish reasons
const (
	FinishStop    = "stop"
	FinishLength  = "length"
	FinishFilter  = "filter"
	FinishOther   = "other"
	FinishUnknown = ""
)

// ChatResult is a provider reply before any interpretation
type ChatResult struct {
	Content      string
	FinishReason string
	Model        string
}

// Complete reports whether the provider finished its answer normally
func (r *ChatResult) Complete() bool {
	return r != nil && (r.FinishReason == FinishStop || r.FinishReason == FinishUnknown)
}

// ChatProvider defines the interface for text-to-text chat completions
type ChatProvider interface {
	// ChatCompletion sends a conversation to the LLM and returns its reply
	ChatCompletion(ctx context.Context, messages []ChatMessage, config ChatConfig) (*ChatResult, error)
}
