package main

import (
	"github.com/spf13/cobra"

	"bindery/internal/extract"
	"bindery/internal/report"
	"bindery/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Survey the source tree by extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			excludes := []string{
				cfg.Paths.FinalRoot,
				cfg.Paths.SandboxDir,
				cfg.Paths.LogDir,
			}
			files, err := scan.NewWalker(excludes, logger).Walk(cfg.Paths.RootPath)
			if err != nil {
				return err
			}

			extractor := extract.New(extract.Limits{
				MaxWords: cfg.Extraction.MaxWords,
				MaxChars: cfg.Extraction.MaxChars,
			}, logger)
			stats := scan.Survey(files, extractor)
			report.NewWriter(cmd.OutOrStdout()).Survey(stats)
			return nil
		},
	}
}
