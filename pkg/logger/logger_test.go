package logger

import (
	"errors"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose", Format: "console"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Config{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNamedAndWith(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := log.Named("session").With(String("target", "hi"), Int("n", 1))
	child.Debug("debug", Error(errors.New("boom")))
	child.Info("info", Bool("ok", true))
	if child == log {
		t.Fatal("expected a distinct child logger")
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Warn("nothing", Any("x", []int{1}))
	_ = l.Sync()
}
