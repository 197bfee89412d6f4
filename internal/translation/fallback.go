package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

// FallbackConfig holds settings for the degraded translator
type FallbackConfig struct {
	Endpoint string
	ClientID string
	Timeout  time.Duration
}

// Fallback translates through the phrasebook, then a direct HTTP endpoint,
// then a fixed message. It never fails.
type Fallback struct {
	phrasebook *Phrasebook
	config     FallbackConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewFallback creates a fallback translator
func NewFallback(config FallbackConfig, phrasebook *Phrasebook, logger *logger.Logger) *Fallback {
	f := &Fallback{
		phrasebook: phrasebook,
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.Named("fallback"),
	}
	f.logger.Debug("Fallback translator ready",
		Int("phrases", phrasebook.Len()),
		String("endpoint", config.Endpoint))
	return f
}

// UnavailableMessage is returned when nothing could translate text
func UnavailableMessage(text string) string {
	return fmt.Sprintf("Translation unavailable for '%s'. Try again or use another language.", text)
}

// Translate returns a translation of text, or a user-facing message
func (f *Fallback) Translate(ctx context.Context, text, source, target string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Fallback translation panicked", String("panic", fmt.Sprint(r)))
			out = fmt.Sprintf("Translation failed: %s", truncate(fmt.Sprint(r), 50))
		}
	}()

	if phrase, ok := f.phrasebook.Lookup(text, target); ok {
		f.logger.Debug("Phrasebook hit", String("target", target))
		return phrase
	}

	translated, err := f.fetch(ctx, text, source, target)
	if err != nil {
		f.logger.Warn("Direct translation request failed", Error(err))
		return UnavailableMessage(text)
	}
	if strings.TrimSpace(translated) == "" {
		return UnavailableMessage(text)
	}
	return translated
}

func (f *Fallback) fetch(ctx context.Context, text, source, target string) (string, error) {
	if f.config.Endpoint == "" {
		return "", fmt.Errorf("no fallback endpoint configured")
	}
	if source == "" {
		source = "auto"
	}

	params := url.Values{}
	params.Set("client", f.config.ClientID)
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, string(body))
	}

	var result []any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return joinSegments(result), nil
}

// joinSegments concatenates the first element of every segment in the
// first outer array
func joinSegments(result []any) string {
	if len(result) == 0 {
		return ""
	}
	segments, ok := result[0].([]any)
	if !ok {
		return ""
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String()
}
