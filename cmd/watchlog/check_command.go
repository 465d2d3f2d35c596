package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"watchlog/internal/dedup"
	"watchlog/internal/record"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether an extraction is already in the database",
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
			if err := rec.Validate(); err != nil {
				return ctx.failure(cmd, err)
			}
			rt.bindSchema()
			resolution, err := rt.resolver.Resolve(rt.ctx, rec)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			report := resolution.Report()
			if ctx.jsonOutput() {
				return writeJSON(cmd, response{OK: true, ID: report.PageID, URL: report.URL, Report: &report})
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "Extraction JSON file (default: stdin)")
	return cmd
}

func printReport(cmd *cobra.Command, report dedup.Report) {
	out := cmd.OutOrStdout()
	if !report.Duplicate {
		fmt.Fprintln(out, "No existing row")
		if report.IdentifierConflict {
			fmt.Fprintln(out, "A row with the same title carries a different ASIN")
		}
		if len(report.Candidates) > 0 {
			fmt.Fprintln(out, "Similar rows:")
			fmt.Fprintln(out, renderCandidates(out, report.Candidates))
		}
		return
	}

	rows := [][]string{
		{"Matched by", string(report.MatchedBy)},
		{"Page", report.PageID},
		{"URL", report.URL},
		{"Status", report.Status},
		{"Rating", record.RatingLabel(report.Rating)},
		{"Tags", strings.Join(report.Tags, ", ")},
		{"Director", report.Director},
		{"Date", report.Date},
		{"ASIN", report.ASIN},
		{"Cover", yesNo(report.HasCover)},
		{"Images", strconv.Itoa(len(report.ExistingFiles))},
	}
	if report.Backfilled {
		rows = append(rows, []string{"ASIN backfilled", "yes"})
	}
	if report.Description != "" {
		rows = append(rows, []string{"Description", report.Description})
	}
	fmt.Fprintln(out, "Already in the database")
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
}
