package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations run in order inside a transaction each. The applied version is
// tracked in schema_migrations, so re-running Open against an existing
// database is a no-op.
var migrations = []string{
	`CREATE TABLE balances (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		institution    TEXT NOT NULL,
		account_number TEXT NOT NULL,
		account_name   TEXT NOT NULL,
		balance        INTEGER NOT NULL,
		value_type     TEXT NOT NULL,
		timestamp      TEXT NOT NULL
	)`,
	`CREATE INDEX idx_balances_account_time
		ON balances (institution, account_number, timestamp)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`,
	); err != nil {
		return err
	}

	var current int
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES (?)`, version,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", version, err)
		}
	}
	return nil
}
