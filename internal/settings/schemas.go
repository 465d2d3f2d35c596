package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"watchlog/internal/record"
)

// SchemaSnapshot is a cached database schema.
type SchemaSnapshot struct {
	DatabaseID string
	Info       record.SchemaInfo
	FetchedAt  time.Time
}

// Schema returns the cached snapshot for databaseID. ok is false when none
// has been saved.
func (s *Store) Schema(ctx context.Context, databaseID string) (snap SchemaSnapshot, ok bool, err error) {
	ctx = ensureContext(ctx)
	var (
		raw       string
		fetchedAt string
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT snapshot, fetched_at FROM database_schemas WHERE database_id = ?", databaseID,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SchemaSnapshot{}, false, nil
	}
	if err != nil {
		return SchemaSnapshot{}, false, fmt.Errorf("read schema snapshot: %w", err)
	}
	snap.DatabaseID = databaseID
	if err := json.Unmarshal([]byte(raw), &snap.Info); err != nil {
		return SchemaSnapshot{}, false, fmt.Errorf("decode schema snapshot: %w", err)
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, fetchedAt); perr == nil {
		snap.FetchedAt = parsed
	}
	return snap, true, nil
}

// SaveSchema replaces the cached snapshot for databaseID.
func (s *Store) SaveSchema(ctx context.Context, databaseID string, info record.SchemaInfo) error {
	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode schema snapshot: %w", err)
	}
	err = s.exec(ctx, `INSERT INTO database_schemas (database_id, status_kind, snapshot, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(database_id) DO UPDATE SET
			status_kind = excluded.status_kind,
			snapshot = excluded.snapshot,
			fetched_at = excluded.fetched_at`,
		databaseID, string(info.StatusKind), string(encoded), timestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("save schema snapshot: %w", err)
	}
	return nil
}
