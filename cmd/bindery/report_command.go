package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bindery/internal/catalog"
	"bindery/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var runFlag string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the latest run's results from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			var run *catalog.Run
			if runID := strings.TrimSpace(runFlag); runID != "" {
				run, err = store.GetRun(cmd.Context(), runID)
			} else {
				run, err = store.LatestRun(cmd.Context())
			}
			if err != nil {
				return err
			}
			if run == nil {
				return errors.New("no runs recorded yet")
			}

			records, err := store.RunRecords(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			report.NewWriter(cmd.OutOrStdout()).Run(run, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&runFlag, "run", "", "Run ID to report on (defaults to the latest)")
	return cmd
}
