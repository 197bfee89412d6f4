package templating

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yegors/co-translate/pkg/logger"
)

func TestRenderBuiltinPrompt(t *testing.T) {
	e := NewEngine(logger.NewNop())

	out, err := e.RenderPrompt("", PromptData{
		SourceCode: "en", SourceName: "English",
		TargetCode: "hi", TargetName: "Hindi",
	})
	if err != nil {
		t.Fatalf("RenderPrompt: %v", err)
	}
	if !strings.Contains(out, "from English (en) to Hindi (hi)") {
		t.Fatalf("unexpected prompt: %s", out)
	}
	if strings.Contains(out, "best guess") {
		t.Fatal("known source language should not get the guess note")
	}

	out, err = e.RenderPrompt("", PromptData{SourceCode: "yo", SourceName: "Unknown", TargetCode: "fr", TargetName: "French"})
	if err != nil {
		t.Fatalf("RenderPrompt: %v", err)
	}
	if !strings.Contains(out, "best guess") {
		t.Fatalf("expected guess note for unknown source: %s", out)
	}
}

func TestRenderFileCachedAndReloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	if err := os.WriteFile(path, []byte("v1 {{.TargetCode}}"), 0644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(logger.NewNop())

	out, err := e.RenderPrompt(path, PromptData{TargetCode: "de"})
	if err != nil || out != "v1 de" {
		t.Fatalf("RenderPrompt = %q, %v", out, err)
	}

	if err := os.WriteFile(path, []byte("v2 {{.TargetCode}}"), 0644); err != nil {
		t.Fatal(err)
	}
	out, _ = e.RenderPrompt(path, PromptData{TargetCode: "de"})
	if out != "v1 de" {
		t.Fatalf("expected cached template, got %q", out)
	}

	if err := e.ReloadTemplate(path); err != nil {
		t.Fatalf("ReloadTemplate: %v", err)
	}
	out, _ = e.RenderPrompt(path, PromptData{TargetCode: "de"})
	if out != "v2 de" {
		t.Fatalf("expected reloaded template, got %q", out)
	}

	if err := os.WriteFile(path, []byte("v3 {{.Broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := e.ReloadTemplate(path); err == nil {
		t.Fatal("expected parse error on reload")
	}
	out, _ = e.RenderPrompt(path, PromptData{TargetCode: "de"})
	if out != "v2 de" {
		t.Fatalf("failed reload should keep previous template, got %q", out)
	}

	if err := e.ReloadTemplate(""); err != nil {
		t.Fatalf("reloading the built-in prompt: %v", err)
	}
}

func TestRenderMissingFile(t *testing.T) {
	e := NewEngine(logger.NewNop())
	if _, err := e.RenderPrompt(filepath.Join(t.TempDir(), "missing"), PromptData{}); err == nil {
		t.Fatal("expected error for missing template")
	}
}
