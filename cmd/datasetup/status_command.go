package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datasetup/internal/logging"
	"datasetup/internal/preflight"
	"datasetup/internal/provision"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dataset file presence and method availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			statuses := provision.Inspect(cfg.Paths.DataDir, cfg.Dataset.RequiredFiles, cfg.Provision.LFSPointersMissing)
			rows := make([][]string, 0, len(statuses))
			present := 0
			for _, status := range statuses {
				size := "-"
				if status.State == provision.StatePresent || status.State == provision.StateLFSPointer {
					size = formatBytes(status.Size)
				}
				if status.Present() {
					present++
				}
				rows = append(rows, []string{status.Name, fileStateLabel(status.State), size})
			}

			report.section("Data files")
			report.line("Config", statusInfo, ctx.configPath)
			report.line("Directory", statusInfo, cfg.Paths.DataDir)
			kind := statusOK
			if present < len(statuses) {
				kind = statusError
			}
			report.line("Present", kind, fmt.Sprintf("%d of %d", present, len(statuses)))
			report.raw(renderTable([]column{
				{header: "File"},
				{header: "State"},
				{header: "Size", align: alignRight},
			}, rows))

			report.section("Acquisition methods")
			for _, probe := range preflight.ProbeMethods(cmd.Context(), cfg, logging.NewNop()) {
				kind := statusOK
				if !probe.Available {
					kind = statusWarn
				}
				report.line(methodLabel(probe.Method), kind, probe.Detail)
			}
			return report.writeTo(out)
		},
	}
}
