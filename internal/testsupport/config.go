// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, creates the source root, and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RootPath = filepath.Join(base, "books")
	cfgVal.Paths.FinalRoot = filepath.Join(base, "sorted")
	cfgVal.Paths.SandboxDir = filepath.Join(base, "sandbox")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Workflow.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.RootPath, 0o755); err != nil {
		t.Fatalf("mkdir source root: %v", err)
	}
	return builder.cfg
}

// WithMaxAttempts overrides the validation retry budget.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Validation.MaxAttempts = attempts
	}
}

// WithWorkers overrides the worker count.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithSnippetLimits overrides the extraction caps.
func WithSnippetLimits(maxWords, maxChars int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extraction.MaxWords = maxWords
		b.cfg.Extraction.MaxChars = maxChars
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RootPath)
}

// WriteBook writes a fixture file under the config's source root and returns
// its path.
func WriteBook(t testing.TB, cfg *config.Config, relPath, content string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.RootPath, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
	return path
}
