package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"bindery/internal/catalog"
	"bindery/internal/classify"
	"bindery/internal/config"
	"bindery/internal/pipeline"
	"bindery/internal/report"
	"bindery/internal/services"
	"bindery/internal/services/llm"
	"bindery/internal/validate"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sandboxFlag bool
	var inPlaceFlag bool
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify and place every book under the source root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if sandboxFlag && inPlaceFlag {
				return errors.New("--sandbox and --in-place are mutually exclusive")
			}
			mode := pipeline.ModeInPlace
			if sandboxFlag || (!inPlaceFlag && cfg.Workflow.UseSandbox) {
				mode = pipeline.ModeSandbox
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "bindery.lock"))
			held, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !held {
				return errors.New("another bindery run is already in progress")
			}
			defer func() { _ = lock.Unlock() }()

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			inferenceClient := newLLMClient(cfg, cfg.LLM.InferenceModel)
			validationClient := newLLMClient(cfg, cfg.LLM.ValidationModel)

			pipe, err := pipeline.New(pipeline.Options{
				Config:     cfg,
				Store:      store,
				Classifier: classify.New(inferenceClient, logger),
				Verifier:   validate.NewLLMVerifier(validationClient, logger),
				Health:     inferenceClient,
				Logger:     logger,
				DryRun:     dryRunFlag,
			})
			if err != nil {
				return err
			}

			summary, runErr := pipe.Run(cmd.Context(), mode)
			if summary != nil {
				report.NewWriter(cmd.OutOrStdout()).Summary(summary)
			}
			if runErr != nil {
				if errors.Is(runErr, services.ErrConfiguration) {
					return runErr
				}
				return fmt.Errorf("run aborted: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sandboxFlag, "sandbox", false, "Work on a copy of the source tree")
	cmd.Flags().BoolVar(&inPlaceFlag, "in-place", false, "Move files from the source tree into the library")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Resolve placements without touching any files")
	return cmd
}

func newLLMClient(cfg *config.Config, model string) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}
