package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// migrate applies the schema and stamps its version. A cache written by a
// newer threadpull is refused rather than silently downgraded.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply cache schema: %w", err)
	}

	stored, err := storedVersion(ctx, tx)
	switch {
	case err != nil:
		return err
	case stored > schemaVersion:
		return fmt.Errorf("cache schema version %d is newer than supported %d", stored, schemaVersion)
	case stored < schemaVersion:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata(key, value) VALUES('schema_version', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.Itoa(schemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}

	return tx.Commit()
}

// storedVersion returns 0 for a fresh database.
func storedVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, nil
}
