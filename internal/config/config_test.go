package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"watchlog/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NOTION_TOKEN", " secret_abc ")
	t.Setenv("NOTION_DATABASE_ID", "db-123")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "watchlog")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.SettingsPath() != filepath.Join(wantState, "settings.db") {
		t.Fatalf("unexpected settings path: %q", cfg.SettingsPath())
	}
	if cfg.Notion.Token != "secret_abc" {
		t.Fatalf("expected token from env, got %q", cfg.Notion.Token)
	}
	if cfg.Notion.DatabaseID != "db-123" {
		t.Fatalf("expected database id from env, got %q", cfg.Notion.DatabaseID)
	}
	if cfg.Notion.APIVersion != "2022-06-28" {
		t.Fatalf("unexpected api version %q", cfg.Notion.APIVersion)
	}
	if cfg.Queue.MinIntervalMillis != 350 || cfg.Queue.MaxRetries != 5 {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.Dedup.FuzzyThreshold != 0.55 || cfg.Dedup.MaxPages != 3 || cfg.Dedup.MaxCandidates != 5 {
		t.Fatalf("unexpected dedup defaults: %+v", cfg.Dedup)
	}
	if cfg.Properties.Rating != "オススメ度" {
		t.Fatalf("unexpected rating column %q", cfg.Properties.Rating)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NOTION_TOKEN", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "watchlog.toml")

	custom := config.Default()
	custom.Paths.StateDir = filepath.Join(dir, "state")
	custom.Notion.Token = "from-file"
	custom.Notion.BaseURL = "http://localhost:9999/v1/"
	custom.Properties.Tags = "Genres"
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Notion.Token != "from-file" {
		t.Fatalf("expected file token, got %q", cfg.Notion.Token)
	}
	if cfg.Notion.BaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Notion.BaseURL)
	}
	if cfg.Properties.Tags != "Genres" {
		t.Fatalf("expected custom tag column, got %q", cfg.Properties.Tags)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threshold", func(c *config.Config) { c.Dedup.FuzzyThreshold = 1.5 }, "fuzzy_threshold"},
		{"page size", func(c *config.Config) { c.Dedup.PageSize = 500 }, "page_size"},
		{"base url", func(c *config.Config) { c.Notion.BaseURL = "ftp://example" }, "base_url"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"retries", func(c *config.Config) { c.Queue.MaxRetries = 99 }, "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Defaults.Status != "鑑賞終了" || !cfg.Defaults.MarkWatched {
		t.Fatalf("unexpected defaults from sample: %+v", cfg.Defaults)
	}
}
