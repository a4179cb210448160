package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <username>",
		Short: "Walk a user's film catalog and list the entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.catalog()
			if err != nil {
				return err
			}

			walk, err := runner.Scrape(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, walk)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderEntries(walk.Entries))
			describeWalk(out, walk)
			return nil
		},
	}
}
