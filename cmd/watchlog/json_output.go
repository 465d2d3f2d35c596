package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"watchlog/internal/dedup"
	"watchlog/internal/services"
	"watchlog/internal/upsert"
)

// response is the --json envelope returned to callers.
type response struct {
	OK        bool          `json:"ok"`
	ID        string        `json:"id,omitempty"`
	URL       string        `json:"url,omitempty"`
	Created   bool          `json:"created,omitempty"`
	Unchanged bool          `json:"unchanged,omitempty"`
	Error     string        `json:"error,omitempty"`
	Kind      string        `json:"kind,omitempty"`
	Report    *dedup.Report `json:"report,omitempty"`
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// failure prints the error envelope in JSON mode and returns err unchanged so
// the exit status still reflects the failure.
func (c *commandContext) failure(cmd *cobra.Command, err error) error {
	if err == nil || !c.jsonOutput() {
		return err
	}
	resp := response{OK: false, Error: err.Error(), Kind: services.Classify(err)}
	var commentErr *upsert.CommentError
	if errors.As(err, &commentErr) {
		resp.ID = commentErr.PageID
	}
	if encErr := writeJSON(cmd, resp); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}
