package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchlog/internal/record"
)

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Fill empty fields of the matching row without overwriting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := readExtraction(cmd, inputPath)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			rt, err := ctx.openRuntime(cmd)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			defer rt.Close()

			rec := record.FromExtraction(ex)
			rec.StatusKind = rt.bindSchema()
			result, err := rt.service.Complete(rt.ctx, rec)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, response{OK: true, ID: result.ID, URL: result.URL, Unchanged: result.Unchanged})
			}
			out := cmd.OutOrStdout()
			if result.Unchanged {
				fmt.Fprintf(out, "Nothing to complete for page %s\n", result.ID)
				return nil
			}
			fmt.Fprintf(out, "Completed page %s\n", result.ID)
			if result.URL != "" {
				fmt.Fprintln(out, result.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "Extraction JSON file (default: stdin)")
	return cmd
}
