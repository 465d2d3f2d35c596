package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Notion contains connection settings for the Notion REST API.
type Notion struct {
	Token          string `toml:"token"`
	DatabaseID     string `toml:"database_id"`
	BaseURL        string `toml:"base_url"`
	APIVersion     string `toml:"api_version"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Properties names the target database columns the mapper writes.
type Properties struct {
	Title       string `toml:"title"`
	URL         string `toml:"url"`
	Description string `toml:"description"`
	Creator     string `toml:"creator"`
	Watched     string `toml:"watched"`
	WatchedDate string `toml:"watched_date"`
	Status      string `toml:"status"`
	Images      string `toml:"images"`
	Tags        string `toml:"tags"`
	Rating      string `toml:"rating"`
	Identifier  string `toml:"identifier"`
	ReleaseYear string `toml:"release_year"`
}

// Queue contains request pacing and 429 retry settings.
type Queue struct {
	MinIntervalMillis        int `toml:"min_interval_ms"`
	MaxRetries               int `toml:"max_retries"`
	RetryBufferMillis        int `toml:"retry_buffer_ms"`
	DefaultRetryAfterSeconds int `toml:"default_retry_after_seconds"`
}

// Dedup contains fuzzy duplicate search settings.
type Dedup struct {
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
	PageSize       int     `toml:"page_size"`
	MaxPages       int     `toml:"max_pages"`
	MaxCandidates  int     `toml:"max_candidates"`
}

// Defaults contains values applied to new records when the user leaves them empty.
type Defaults struct {
	Status      string `toml:"status"`
	MarkWatched bool   `toml:"mark_watched"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for watchlog.
//
// Configuration sections by subsystem:
//   - Paths: settings database, lock file, and log locations
//   - Notion: API credentials and endpoint
//   - Properties: target database column names
//   - Queue: request pacing and rate-limit retries
//   - Dedup: fuzzy candidate search bounds
//   - Defaults: values applied to new records
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Notion     Notion     `toml:"notion"`
	Properties Properties `toml:"properties"`
	Queue      Queue      `toml:"queue"`
	Dedup      Dedup      `toml:"dedup"`
	Defaults   Defaults   `toml:"defaults"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/watchlog/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("watchlog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SettingsPath returns the SQLite settings database location.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.StateDir, "settings.db")
}

// LockPath returns the worker lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "watchlog.lock")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Notion.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
