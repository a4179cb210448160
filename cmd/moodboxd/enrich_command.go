package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moodboxd/backend/internal/infrastructure/export"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var outPath string
	var formatName string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich entries from a CSV or NDJSON file with film metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(inputPath) == "" {
				return fmt.Errorf("--input is required")
			}

			var format export.Format
			if outPath != "" {
				f, err := resolveFormat(formatName, outPath)
				if err != nil {
					return err
				}
				format = f
			}

			entries, err := export.ReadEntriesFile(inputPath)
			if err != nil {
				return err
			}

			runner, err := ctx.catalog()
			if err != nil {
				return err
			}

			result, runErr := runner.Enrich(cmd.Context(), entries)
			if result == nil {
				return runErr
			}

			if outPath != "" {
				if err := writeRecordsTo(cmd, outPath, format, result.Records); err != nil {
					return err
				}
			}

			if ctx.jsonOutput {
				if outPath != "-" {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				}
				return runErr
			}

			out := cmd.OutOrStdout()
			if outPath == "-" {
				out = cmd.ErrOrStderr()
			}
			fmt.Fprintln(out, renderRecords(result.Records))
			fmt.Fprintln(out, renderSummary(result.Summary))
			return runErr
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Entries file (.csv, .ndjson or .jsonl)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write enriched records to this file (- for stdout)")
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "Output format: csv, ndjson or json (default from --out extension)")
	return cmd
}
