package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"watchlog/internal/dedup"
	"watchlog/internal/record"
	"watchlog/internal/upsert"
)

type editFlags struct {
	title          string
	rating         int
	tags           []string
	status         string
	comment        string
	description    string
	creator        string
	cover          string
	overwriteCover bool
	watchedDate    string
	unwatched      bool
}

func (f *editFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "Override the title")
	flags.IntVar(&f.rating, "rating", 0, "Star rating 0-5 (0 clears)")
	flags.StringSliceVar(&f.tags, "tag", nil, "Genre tag (repeatable; replaces stored tags)")
	flags.StringVar(&f.status, "status", "", "Status option name")
	flags.StringVar(&f.comment, "comment", "", "Comment to post on the page")
	flags.StringVar(&f.description, "description", "", "Override the description")
	flags.StringVar(&f.creator, "creator", "", "Override the director")
	flags.StringVar(&f.cover, "cover", "", "Image URL to use as the page cover")
	flags.BoolVar(&f.overwriteCover, "overwrite-cover", false, "Replace an existing page cover")
	flags.StringVar(&f.watchedDate, "watched-date", "", "Watched date (YYYY-MM-DD); defaults to today on create")
	flags.BoolVar(&f.unwatched, "unwatched", false, "Do not mark the title as watched")
}

// edits converts the flags the user actually set into record edits.
func (f *editFlags) edits(cmd *cobra.Command, today string) []upsert.Edit {
	changed := cmd.Flags().Changed
	var edits []upsert.Edit
	if changed("title") {
		title := strings.TrimSpace(f.title)
		edits = append(edits, func(r *record.WorkRecord) { r.Title = title })
	}
	if changed("rating") {
		rating := f.rating
		edits = append(edits, func(r *record.WorkRecord) { r.Rating = rating })
	}
	if changed("tag") {
		tags := append([]string(nil), f.tags...)
		edits = append(edits, func(r *record.WorkRecord) { r.Tags = tags })
	}
	if changed("status") {
		status := f.status
		edits = append(edits, func(r *record.WorkRecord) { r.Status = status })
	}
	if changed("comment") {
		comment := f.comment
		edits = append(edits, func(r *record.WorkRecord) { r.Comment = comment })
	}
	if changed("description") {
		description := f.description
		edits = append(edits, func(r *record.WorkRecord) { r.Description = description })
	}
	if changed("creator") {
		creator := f.creator
		edits = append(edits, func(r *record.WorkRecord) { r.Creator = creator })
	}
	if changed("cover") {
		cover := strings.TrimSpace(f.cover)
		edits = append(edits, func(r *record.WorkRecord) { r.CoverImage = cover })
	}
	if f.overwriteCover {
		edits = append(edits, func(r *record.WorkRecord) { r.OverwriteCover = true })
	}
	if f.unwatched {
		edits = append(edits, func(r *record.WorkRecord) {
			r.Watched = false
			r.WatchedDate = ""
		})
	}
	if changed("watched-date") {
		date := strings.TrimSpace(f.watchedDate)
		edits = append(edits, func(r *record.WorkRecord) { r.WatchedDate = date })
	}
	edits = append(edits, func(r *record.WorkRecord) {
		if r.Watched && r.WatchedDate == "" && !r.IsUpdate() {
			r.WatchedDate = today
		}
	})
	return edits
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath string
		pageID    string
		edits     editFlags
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update the watch-list row for an extraction",
		Long: `Read a scraper extraction (JSON) from --file or stdin and write it to the
target database. An existing row is found by ASIN, then by title; when one
matches, its curated fields fill any gaps before the flag edits apply.`,
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
			if ex.Watched == nil && !rt.cfg.Defaults.MarkWatched {
				rec.Watched = false
			}
			rec.StatusKind = rt.bindSchema()
			if id := strings.TrimSpace(pageID); id != "" {
				rec.RemoteID = id
				// The stored cover is unknown; only --overwrite-cover replaces it.
				rec.HasExistingCover = true
			}

			result, err := rt.service.Save(rt.ctx, rec, edits.edits(cmd, time.Now().Format(time.DateOnly))...)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, response{OK: true, ID: result.ID, URL: result.URL, Created: result.Created})
			}
			printSaveResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "Extraction JSON file (default: stdin)")
	cmd.Flags().StringVar(&pageID, "page-id", "", "Update this page instead of searching for a duplicate")
	edits.register(cmd)
	return cmd
}

func printSaveResult(cmd *cobra.Command, result upsert.Result) {
	out := cmd.OutOrStdout()
	verb := "Updated"
	if result.Created {
		verb = "Created"
	}
	fmt.Fprintf(out, "%s page %s\n", verb, result.ID)
	if result.URL != "" {
		fmt.Fprintln(out, result.URL)
	}
	if result.Resolution != nil && result.Created && len(result.Resolution.Candidates) > 0 {
		fmt.Fprintln(out, "Similar rows already in the database:")
		fmt.Fprintln(out, renderCandidates(out, result.Resolution.Candidates))
	}
}

func renderCandidates(out io.Writer, candidates []dedup.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", c.Score),
			c.Title,
			c.ExternalID,
			c.URL,
		})
	}
	return renderTable(out, []string{"Score", "Title", "ASIN", "URL"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
}
