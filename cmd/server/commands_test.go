package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yegors/co-translate/internal/config"
	"github.com/yegors/co-translate/internal/storage/sqlite"
	"github.com/yegors/co-translate/pkg/logger"
)

func writeConfig(t *testing.T) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	path = filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[logging]\nlevel = \"error\"\n\n[storage]\ndata_dir = %q\n\n[translation]\ndefault_target = \"fr\"\n", dataDir)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path, dataDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLanguagesCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := execute(t, "--config", cfgPath, "--env-file", "", "languages")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	if !strings.Contains(out, "Hindi") || !strings.Contains(out, "(default)") {
		t.Fatalf("output = %q", out)
	}
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 30 {
		t.Fatalf("got %d lines", n)
	}
}

func TestHistoryCommands(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "--env-file", "", "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "No translations yet.") {
		t.Fatalf("empty list output = %q", out)
	}

	store, err := sqlite.NewHistoryStore(filepath.Join(dataDir, config.DefaultDBFilename), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	store.Append(context.Background(), &sqlite.TranslationRecord{
		SourceText:     "thank you very much for all the help this afternoon",
		SourceLang:     "en",
		TranslatedText: "merci",
		TargetLang:     "fr",
	})
	store.Close()

	out, err = execute(t, "--config", cfgPath, "--env-file", "", "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "thank you very much for all th...") || !strings.Contains(out, "French") {
		t.Fatalf("list output = %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "--env-file", "", "history", "clear")
	if err != nil || !strings.Contains(out, "cleared successfully (1 records)") {
		t.Fatalf("clear = %q, %v", out, err)
	}
	out, _ = execute(t, "--config", cfgPath, "--env-file", "", "history", "clear")
	if !strings.Contains(out, "No history exists yet to clear") {
		t.Fatalf("second clear = %q", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "languages"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
