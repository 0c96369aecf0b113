package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewForDirWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewForDir(dir, "info", "console")
	if err != nil {
		t.Fatalf("NewForDir: %v", err)
	}
	logger.Info("hello", String("component", "test"), String("file", "a b.txt"))

	data, err := os.ReadFile(filepath.Join(dir, "bindery.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO test: hello") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, `file="a b.txt"`) {
		t.Fatalf("expected quoted value in %q", line)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewForDir(dir, "info", "console")
	if err != nil {
		t.Fatalf("NewForDir: %v", err)
	}

	ctx := services.WithSourcePath(context.Background(), "/books/a.epub")
	ctx = services.WithStage(ctx, "classifying")
	ctx = services.WithRunID(ctx, "run-1")

	WithContext(ctx, logger).Info("working")

	data, err := os.ReadFile(filepath.Join(dir, "bindery.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"file=/books/a.epub", "stage=classifying", "run_id=run-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected usable logger")
	}
	logger.Info("goes nowhere")
}
