package transcription

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/yegors/co-translate/internal/audio"
	"github.com/yegors/co-translate/pkg/logger"
)

// OpenAIConfig holds speech-to-text client settings
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string // empty uses api.openai.com
	Model    string
	Language string // optional hint
	Timeout  time.Duration
}

// OpenAITranscriber uses the audio transcription endpoint of any
// OpenAI-compatible service
type OpenAITranscriber struct {
	client *openai.Client
	config OpenAIConfig
	logger *logger.Logger
}

// NewOpenAITranscriber creates a new transcriber
func NewOpenAITranscriber(config OpenAIConfig, logger *logger.Logger) *OpenAITranscriber {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	if config.Model == "" {
		config.Model = openai.Whisper1
	}

	return &OpenAITranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.Named("stt-openai"),
	}
}

// Transcribe implements Transcriber
func (t *OpenAITranscriber) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	wav, err := u.WAV()
	if err != nil {
		return "", fmt.Errorf("failed to encode utterance: %w", err)
	}

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.config.Model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: t.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	t.logger.Debug("Transcription complete",
		String("utterance_id", u.ID.String()),
		Duration("latency", time.Since(start)),
		Int("chars", len(text)))

	if text == "" {
		return "", audio.ErrUnintelligible
	}
	return text, nil
}
