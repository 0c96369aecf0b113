package config

const (
	defaultRootPath       = "~/books"
	defaultFinalRoot      = "~/books/sorted"
	defaultSandboxDir     = "~/.local/share/bindery/sandbox"
	defaultLogDir         = "~/.local/share/bindery/logs"
	defaultMaxWords       = 1000
	defaultMaxChars       = 10000
	defaultBaseURL        = "http://127.0.0.1:11434/v1/chat/completions"
	defaultInferenceModel = "qwen2:7b"
	defaultValidationModel = "qwen2:7b"
	defaultTimeoutSeconds = 120
	defaultMaxAttempts    = 5
	defaultWorkers        = 2
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RootPath:   defaultRootPath,
			FinalRoot:  defaultFinalRoot,
			SandboxDir: defaultSandboxDir,
			LogDir:     defaultLogDir,
		},
		Extraction: Extraction{
			MaxWords: defaultMaxWords,
			MaxChars: defaultMaxChars,
		},
		LLM: LLM{
			BaseURL:         defaultBaseURL,
			InferenceModel:  defaultInferenceModel,
			ValidationModel: defaultValidationModel,
			TimeoutSeconds:  defaultTimeoutSeconds,
		},
		Validation: Validation{
			MaxAttempts: defaultMaxAttempts,
		},
		Workflow: Workflow{
			UseSandbox: true,
			Workers:    defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
