package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RootPath) == "" {
		return errors.New("paths.root_path must be set")
	}
	if strings.TrimSpace(c.Paths.FinalRoot) == "" {
		return errors.New("paths.final_root must be set")
	}
	if c.Paths.RootPath == c.Paths.FinalRoot {
		return errors.New("paths.final_root must differ from paths.root_path")
	}
	if c.Workflow.UseSandbox && strings.TrimSpace(c.Paths.SandboxDir) == "" {
		return errors.New("paths.sandbox_dir must be set when workflow.use_sandbox is true")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.MaxWords <= 0 {
		return errors.New("extraction.max_words must be positive")
	}
	if c.Extraction.MaxChars <= 0 {
		return errors.New("extraction.max_chars must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.InferenceModel == "" {
		return errors.New("llm.inference_model must be set")
	}
	if c.LLM.ValidationModel == "" {
		return errors.New("llm.validation_model must be set")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.MaxAttempts < 1 {
		return fmt.Errorf("validation.max_attempts must be at least 1, got %d", c.Validation.MaxAttempts)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return fmt.Errorf("workflow.workers must be at least 1, got %d", c.Workflow.Workers)
	}
	return nil
}
