package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moodboxd/backend/internal/infrastructure/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var formatName string

	cmd := &cobra.Command{
		Use:   "export <username>",
		Short: "Scrape and enrich a catalog, writing one row per film",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = username + "-films" + format.Extension()
			}

			runner, err := ctx.catalog()
			if err != nil {
				return err
			}

			report, runErr := runner.ScrapeAndEnrich(cmd.Context(), username)
			if report == nil || len(report.Records) == 0 {
				return runErr
			}

			if err := writeRecordsTo(cmd, outPath, format, report.Records); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath == "-" {
				out = cmd.ErrOrStderr()
			}
			if report.Walk != nil {
				describeWalk(out, report.Walk)
			}
			fmt.Fprintln(out, renderSummary(report.Summary))
			if outPath != "-" {
				fmt.Fprintf(out, "wrote %d records to %s\n", len(report.Records), outPath)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (- for stdout, default <username>-films.<format>)")
	cmd.Flags().StringVarP(&formatName, "format", "f", "csv", "Output format: csv, ndjson or json")
	return cmd
}
