package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"watchlog/internal/notion"
	"watchlog/internal/settings"
)

type schemaOutput struct {
	DatabaseID    string                `json:"databaseId"`
	StatusKind    notion.StatusKind     `json:"statusKind"`
	StatusOptions []notion.SelectOption `json:"statusOptions"`
	TagOptions    []notion.SelectOption `json:"tagOptions"`
	HasIdentifier bool                  `json:"hasIdentifier"`
	FetchedAt     time.Time             `json:"fetchedAt"`
}

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the status and tag options of the target database",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			defer rt.Close()

			snap, err := rt.schema(refresh)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, schemaOutput{
					DatabaseID:    snap.DatabaseID,
					StatusKind:    snap.Info.StatusKind,
					StatusOptions: nonNilOptions(snap.Info.StatusOptions),
					TagOptions:    nonNilOptions(snap.Info.TagOptions),
					HasIdentifier: snap.Info.HasIdentifier,
					FetchedAt:     snap.FetchedAt,
				})
			}
			printSchema(cmd, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the schema again instead of using the cached copy")
	return cmd
}

func printSchema(cmd *cobra.Command, snap settings.SchemaSnapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database:    %s\n", snap.DatabaseID)
	fmt.Fprintf(out, "Status kind: %s\n", snap.Info.StatusKind)
	fmt.Fprintf(out, "ASIN column: %s\n", yesNo(snap.Info.HasIdentifier))
	if !snap.FetchedAt.IsZero() {
		fmt.Fprintf(out, "Fetched:     %s\n", snap.FetchedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Status options:")
	fmt.Fprintln(out, renderOptions(cmd, snap.Info.StatusOptions))
	fmt.Fprintln(out, "Tag options:")
	fmt.Fprintln(out, renderOptions(cmd, snap.Info.TagOptions))
}

func renderOptions(cmd *cobra.Command, options []notion.SelectOption) string {
	if len(options) == 0 {
		return "  (none)"
	}
	rows := make([][]string, 0, len(options))
	for _, opt := range options {
		color := opt.Color
		if color == "" {
			color = "default"
		}
		rows = append(rows, []string{opt.Name, color})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Name", "Color"}, rows, nil)
}

func nonNilOptions(options []notion.SelectOption) []notion.SelectOption {
	if options == nil {
		return []notion.SelectOption{}
	}
	return options
}
