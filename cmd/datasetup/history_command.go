package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"datasetup/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent provisioning runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No provisioning runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format(time.DateTime),
					runResult(run),
					methodLabel(run.Method),
					summarizeAttempts(run.Attempts),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
					shortRunID(run.RunID),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "Started"},
				{header: "Result"},
				{header: "Method"},
				{header: "Attempts"},
				{header: "Duration", align: alignRight},
				{header: "Run"},
			}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func runResult(run history.Run) string {
	switch {
	case run.AlreadyPresent:
		return "Already present"
	case run.Success:
		return "Acquired"
	case run.Interrupted:
		return "Interrupted"
	default:
		return "Unavailable"
	}
}

func summarizeAttempts(attempts []history.Attempt) string {
	if len(attempts) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		parts = append(parts, fmt.Sprintf("%s=%s", attempt.Method, resultLabel(attempt.Result)))
	}
	return strings.Join(parts, ", ")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
