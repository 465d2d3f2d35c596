package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"watchlog/internal/config"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(ctx), newConfigValidateCommand(ctx))
	return configCmd
}

// sampleTarget picks where `config init` writes: --path, else the global
// --config flag, else the default location.
func sampleTarget(ctx *commandContext, path string) (string, error) {
	for _, candidate := range []string{path, ctx.configPath()} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return config.ExpandPath(candidate)
		}
	}
	return config.DefaultConfigPath()
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the sample configuration",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(ctx, path)
			if err != nil {
				return ctx.failure(cmd, fmt.Errorf("resolve config path: %w", err))
			}
			if !force {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return ctx.failure(cmd, fmt.Errorf("%s already exists; pass --force to replace it", target))
				case !errors.Is(statErr, fs.ErrNotExist):
					return ctx.failure(cmd, fmt.Errorf("inspect %s: %w", target, statErr))
				}
			}
			if err := config.CreateSample(target); err != nil {
				return ctx.failure(cmd, err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"ok": true, "path": target})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next: watchlog settings set --token <secret> --database-id <id>")
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the file")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective values",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return ctx.failure(cmd, err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return ctx.failure(cmd, err)
			}

			source := path
			if !exists {
				source = "defaults (no file at " + path + ")"
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"ok": true, "path": path, "exists": exists})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Setting", "Value"}, [][]string{
				{"Source", source},
				{"State dir", cfg.Paths.StateDir},
				{"Log dir", cfg.Paths.LogDir},
				{"Notion API", cfg.Notion.BaseURL + " (" + cfg.Notion.APIVersion + ")"},
				{"Default status", cfg.Defaults.Status},
			}, nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
