package testsupport

import (
	"path/filepath"
	"testing"

	"watchlog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders and request pacing is shortened so
// tests do not spend time in the queue.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Notion.Token = "test-token"
	cfgVal.Notion.DatabaseID = DatabaseID
	cfgVal.Notion.TimeoutSeconds = 5
	cfgVal.Queue.MinIntervalMillis = 1
	cfgVal.Queue.RetryBufferMillis = 1
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNotionServer points the config at a fake Notion server.
func WithNotionServer(server *NotionServer) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notion.BaseURL = server.BaseURL()
		b.cfg.Notion.DatabaseID = server.DatabaseID()
	}
}

// WithoutCredentials clears the token and database id.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notion.Token = ""
		b.cfg.Notion.DatabaseID = ""
	}
}

// WithDefaultStatus overrides the status applied to new rows.
func WithDefaultStatus(status string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Defaults.Status = status
	}
}
