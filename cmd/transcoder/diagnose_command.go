package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"media-transcoder/internal/diagnostics"
	"media-transcoder/internal/domain"
)

var errDiagnosticsFailed = errors.New("diagnostics reported failures")

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check the engine module and output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.newLogger(cmd)
			bridge := ctx.newBridge(logger)
			defer func() { _ = bridge.Close(cmd.Context()) }()

			report := diagnostics.NewChecker().Run(cmd.Context(), ctx.config, bridge)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			fmt.Fprintln(out, renderDiagnostics(report))
			if report.HasFailures {
				return errDiagnosticsFailed
			}
			return nil
		},
	}
}

func renderDiagnostics(report domain.DiagnosticReport) string {
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		message := item.Message
		if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
			message += "\n" + item.Hint
		}
		rows = append(rows, []string{item.Name, string(item.Status), message})
	}
	return renderTable([]string{"Check", "Status", "Details"}, rows, nil)
}
