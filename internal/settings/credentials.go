package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"watchlog/internal/services"
)

// Credentials are the Notion integration token and target database id.
type Credentials struct {
	APIToken   string
	DatabaseID string
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIToken) != "" && strings.TrimSpace(c.DatabaseID) != ""
}

// Merge returns c with empty fields taken from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if strings.TrimSpace(c.APIToken) == "" {
		c.APIToken = fallback.APIToken
	}
	if strings.TrimSpace(c.DatabaseID) == "" {
		c.DatabaseID = fallback.DatabaseID
	}
	return c
}

// Credentials returns the stored credentials; missing rows yield zero values.
func (s *Store) Credentials(ctx context.Context) (Credentials, error) {
	ctx = ensureContext(ctx)
	var creds Credentials
	err := s.db.QueryRowContext(ctx,
		"SELECT api_token, database_id FROM credentials WHERE id = 1",
	).Scan(&creds.APIToken, &creds.DatabaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	return creds, nil
}

// SaveCredentials stores creds, replacing any previous values.
func (s *Store) SaveCredentials(ctx context.Context, creds Credentials) error {
	err := s.exec(ctx, `INSERT INTO credentials (id, api_token, database_id, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			api_token = excluded.api_token,
			database_id = excluded.database_id,
			updated_at = excluded.updated_at`,
		strings.TrimSpace(creds.APIToken), strings.TrimSpace(creds.DatabaseID), timestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// ResolveCredentials merges stored credentials over fallback (config and
// environment) and fails with services.ErrSettingsMissing when either value
// is still empty.
func (s *Store) ResolveCredentials(ctx context.Context, fallback Credentials) (Credentials, error) {
	stored, err := s.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	creds := stored.Merge(fallback)
	if !creds.Complete() {
		var missing []string
		if strings.TrimSpace(creds.APIToken) == "" {
			missing = append(missing, "api token")
		}
		if strings.TrimSpace(creds.DatabaseID) == "" {
			missing = append(missing, "database id")
		}
		return creds, fmt.Errorf("%w: %s (run 'watchlog settings set')", services.ErrSettingsMissing, strings.Join(missing, " and "))
	}
	return creds, nil
}
