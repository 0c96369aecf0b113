package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RootPath   string `toml:"root_path"`
	FinalRoot  string `toml:"final_root"`
	SandboxDir string `toml:"sandbox_dir"`
	LogDir     string `toml:"log_dir"`
}

// Extraction contains snippet extraction caps.
type Extraction struct {
	MaxWords int `toml:"max_words"`
	MaxChars int `toml:"max_chars"`
}

// LLM contains connection settings for the local inference backend.
type LLM struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	InferenceModel  string `toml:"inference_model"`
	ValidationModel string `toml:"validation_model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Validation contains settings for the second-model validation loop.
type Validation struct {
	MaxAttempts int `toml:"max_attempts"`
}

// Workflow contains run mode and concurrency settings.
type Workflow struct {
	UseSandbox bool `toml:"use_sandbox"`
	Workers    int  `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bindery.
//
// Configuration sections by subsystem:
//   - Paths: source tree, final library, sandbox, and log directories
//   - Extraction: snippet word and character caps
//   - LLM: backend endpoint and model selection for inference and validation
//   - Validation: retry budget for the second-model verdict loop
//   - Workflow: sandbox vs in-place mode and worker concurrency
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Extraction Extraction `toml:"extraction"`
	LLM        LLM        `toml:"llm"`
	Validation Validation `toml:"validation"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bindery/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bindery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	expanded := map[*string]string{
		&c.Paths.RootPath:   c.Paths.RootPath,
		&c.Paths.FinalRoot:  c.Paths.FinalRoot,
		&c.Paths.SandboxDir: c.Paths.SandboxDir,
		&c.Paths.LogDir:     c.Paths.LogDir,
	}
	for field, value := range expanded {
		if strings.TrimSpace(value) == "" {
			continue
		}
		path, err := expandPath(value)
		if err != nil {
			return err
		}
		*field = path
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.InferenceModel = strings.TrimSpace(c.LLM.InferenceModel)
	c.LLM.ValidationModel = strings.TrimSpace(c.LLM.ValidationModel)
	return nil
}

// EnsureDirectories creates the directories a run needs. The final library
// root is created eagerly so resume checks can list existing author folders.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.FinalRoot, c.Paths.LogDir}
	if c.Workflow.UseSandbox {
		dirs = append(dirs, c.Paths.SandboxDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
