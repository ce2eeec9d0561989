// Package sqlite stores conversation sessions in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// migrations are applied in order; PRAGMA user_version records how many have
// run. Append only.
var migrations = []string{
	`CREATE TABLE sessions (
		id          TEXT PRIMARY KEY,
		source_file TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE TABLE turns (
		id             TEXT PRIMARY KEY,
		session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position       INTEGER NOT NULL,
		role           TEXT NOT NULL,
		text           TEXT NOT NULL,
		token_estimate INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL,
		UNIQUE (session_id, position)
	);`,
	`CREATE INDEX idx_turns_session_id ON turns(session_id);
	CREATE INDEX idx_sessions_updated_at ON sessions(updated_at);`,
}

// DB is a SQLite connection with the session schema applied.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB returns a DB for the file at path. Use ":memory:" for a throwaway
// in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects and migrates the schema to the latest version.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", db.path, err)
	}
	// One writer at a time; a single connection also keeps ":memory:" shared.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if db.path != memoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	db.db = conn
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		db.db = nil
		return fmt.Errorf("migrate %s: %w", db.path, err)
	}
	return nil
}

// Close closes the connection. Closing an unopened DB is a no-op.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// Version returns the number of migrations applied.
func (db *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

func (db *DB) migrate(ctx context.Context) error {
	current, err := db.Version(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this binary supports (%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
