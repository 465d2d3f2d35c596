package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"watchlog/internal/config"
	"watchlog/internal/record"
	"watchlog/internal/services"
)

// readExtraction loads scraper output from path, or from stdin when path is
// empty or "-". An interactive stdin is refused rather than waited on.
func readExtraction(cmd *cobra.Command, path string) (record.Extraction, error) {
	path = strings.TrimSpace(path)
	if path != "" && path != "-" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return record.Extraction{}, err
		}
		file, err := os.Open(expanded)
		if err != nil {
			return record.Extraction{}, services.Wrap(services.ErrValidation, "cli", "read extraction", "open input", err)
		}
		defer file.Close()
		return record.DecodeExtraction(file)
	}

	in := cmd.InOrStdin()
	if path == "" && isTerminal(in) {
		return record.Extraction{}, services.Wrap(services.ErrValidation, "cli", "read extraction",
			"no input: pass --file or pipe the extraction JSON on stdin", nil)
	}
	return record.DecodeExtraction(in)
}
