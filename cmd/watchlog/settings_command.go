package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"watchlog/internal/services"
	"watchlog/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage stored Notion credentials",
	}
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	return settingsCmd
}

func (c *commandContext) openSettings() (*settings.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return settings.Open(cfg)
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var token, databaseID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API token and/or database id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(token) == "" && strings.TrimSpace(databaseID) == "" {
				return ctx.failure(cmd, errors.New("nothing to set: pass --token and/or --database-id"))
			}
			store, err := ctx.openSettings()
			if err != nil {
				return ctx.failure(cmd, err)
			}
			defer store.Close()

			runCtx := runContext(cmd)
			stored, err := store.Credentials(runCtx)
			if err != nil {
				return ctx.failure(cmd, err)
			}
			updated := settings.Credentials{APIToken: token, DatabaseID: databaseID}.Merge(stored)
			if err := store.SaveCredentials(runCtx, updated); err != nil {
				return ctx.failure(cmd, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, response{OK: true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Notion integration token")
	cmd.Flags().StringVar(&databaseID, "database-id", "", "Target database id")
	return cmd
}

type settingsView struct {
	Token          string `json:"token"`
	TokenSource    string `json:"tokenSource"`
	DatabaseID     string `json:"databaseId"`
	DatabaseSource string `json:"databaseSource"`
	Complete       bool   `json:"complete"`
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective credentials and where they come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return ctx.failure(cmd, err)
			}
			store, err := ctx.openSettings()
			if err != nil {
				return ctx.failure(cmd, err)
			}
			defer store.Close()

			stored, err := store.Credentials(runContext(cmd))
			if err != nil {
				return ctx.failure(cmd, err)
			}
			fallback := settings.Credentials{APIToken: cfg.Notion.Token, DatabaseID: cfg.Notion.DatabaseID}
			effective := stored.Merge(fallback)
			view := settingsView{
				Token:          maskToken(effective.APIToken),
				TokenSource:    source(stored.APIToken, fallback.APIToken),
				DatabaseID:     effective.DatabaseID,
				DatabaseSource: source(stored.DatabaseID, fallback.DatabaseID),
				Complete:       effective.Complete(),
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Setting", "Value", "Source"}, [][]string{
				{"Token", view.Token, view.TokenSource},
				{"Database", view.DatabaseID, view.DatabaseSource},
			}, nil))
			if !view.Complete {
				fmt.Fprintln(out, services.ErrSettingsMissing.Error()+"; run 'watchlog settings set'")
			}
			return nil
		},
	}
}

func source(stored, fallback string) string {
	switch {
	case strings.TrimSpace(stored) != "":
		return "settings"
	case strings.TrimSpace(fallback) != "":
		return "config"
	default:
		return "unset"
	}
}

func maskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	runes := []rune(token)
	if len(runes) <= 8 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:4]) + strings.Repeat("*", len(runes)-8) + string(runes[len(runes)-4:])
}
