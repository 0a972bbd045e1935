package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"datasetup/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run dependency and preflight checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind := statusOK
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
				}
				report.line(status.Name, kind, detail)
			}

			failed := 0
			report.section("Preflight")
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				switch {
				case result.Passed:
				case result.Optional:
					kind = statusWarn
				default:
					kind = statusError
					failed++
				}
				report.line(result.Name, kind, result.Detail)
			}
			if err := report.writeTo(out); err != nil {
				return err
			}

			if failed > 0 {
				return errors.New(pluralize(failed, "preflight check failed", "preflight checks failed"))
			}
			return nil
		},
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}
