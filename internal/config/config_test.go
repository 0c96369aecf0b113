package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if path != missing {
		t.Fatalf("resolved path = %q, want %q", path, missing)
	}
	if cfg.Validation.MaxAttempts != defaultMaxAttempts {
		t.Fatalf("max attempts = %d, want %d", cfg.Validation.MaxAttempts, defaultMaxAttempts)
	}
	if !cfg.Workflow.UseSandbox {
		t.Fatal("sandbox mode should default on")
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindery.toml")
	content := strings.Join([]string{
		"[paths]",
		`root_path = "~/shelf"`,
		`final_root = "~/shelf-sorted"`,
		"[extraction]",
		"max_words = 500",
		"[llm]",
		`inference_model = "llama3:8b"`,
		"[validation]",
		"max_attempts = 3",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}
	if cfg.Paths.RootPath != filepath.Join(home, "shelf") {
		t.Fatalf("root path not expanded: %q", cfg.Paths.RootPath)
	}
	if cfg.Extraction.MaxWords != 500 {
		t.Fatalf("max_words = %d, want 500", cfg.Extraction.MaxWords)
	}
	if cfg.Extraction.MaxChars != defaultMaxChars {
		t.Fatalf("max_chars should keep default, got %d", cfg.Extraction.MaxChars)
	}
	if cfg.LLM.InferenceModel != "llama3:8b" {
		t.Fatalf("inference model = %q", cfg.LLM.InferenceModel)
	}
	if cfg.LLM.ValidationModel != defaultValidationModel {
		t.Fatalf("validation model should keep default, got %q", cfg.LLM.ValidationModel)
	}
	if cfg.Validation.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.Validation.MaxAttempts)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty root", func(c *Config) { c.Paths.RootPath = "" }, "root_path"},
		{"root equals final", func(c *Config) { c.Paths.FinalRoot = c.Paths.RootPath }, "final_root"},
		{"sandbox dir required", func(c *Config) { c.Paths.SandboxDir = "" }, "sandbox_dir"},
		{"zero words", func(c *Config) { c.Extraction.MaxWords = 0 }, "max_words"},
		{"zero chars", func(c *Config) { c.Extraction.MaxChars = 0 }, "max_chars"},
		{"no base url", func(c *Config) { c.LLM.BaseURL = "" }, "base_url"},
		{"no inference model", func(c *Config) { c.LLM.InferenceModel = "" }, "inference_model"},
		{"no validation model", func(c *Config) { c.LLM.ValidationModel = "" }, "validation_model"},
		{"zero attempts", func(c *Config) { c.Validation.MaxAttempts = 0 }, "max_attempts"},
		{"zero workers", func(c *Config) { c.Workflow.Workers = 0 }, "workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q missing %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.RootPath = filepath.Join(base, "books")
	cfg.Paths.FinalRoot = filepath.Join(base, "sorted")
	cfg.Paths.SandboxDir = filepath.Join(base, "sandbox")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.UseSandbox = true

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.FinalRoot, cfg.Paths.SandboxDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
