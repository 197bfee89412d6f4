package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yegors/co-translate/internal/ai"
	"github.com/yegors/co-translate/pkg/logger"
)

func TestChatCompletion(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "bonjour"}]},
				"finishReason": "STOP"
			}]
		}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", logger.NewNop(), srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "translate to French"},
		{Role: ai.RoleUser, Content: "hello"},
	}, ai.ChatConfig{Model: "gemini-test", MaxTokens: 32})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if !strings.Contains(path, "gemini-test:generateContent") {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(body, "translate to French") {
		t.Errorf("system instruction missing from request: %s", body)
	}
	if res.Content != "bonjour" {
		t.Errorf("content = %q", res.Content)
	}
	if !res.Complete() {
		t.Errorf("finish reason = %q", res.FinishReason)
	}
}
