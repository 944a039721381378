// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works, nothing to install.
//
// The package follows database/sql conventions throughout: parameterized
// queries only, QueryRowContext for single rows, rows.Close() + rows.Err()
// on iterations.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// It implements both repository.UserRepository and repository.EventRepository.
type DB struct {
	conn *sql.DB
}

// New opens a SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/eventboard.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// database/sql pools connections, and every pooled connection to
	// ":memory:" would open its OWN empty database. Pinning the pool to a
	// single connection keeps all queries on the one in-memory instance.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path or permissions problem
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// without it SQLite locks the whole file per write, which stalls a web
	// server under any real traffic.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. We need them ON so an
	// event can never reference a user that doesn't exist.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. The server defers this during
// graceful shutdown so the WAL is flushed and the file lock released.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe to run on every start.
//
// Email uniqueness is enforced case-insensitively in the schema
// (COLLATE NOCASE on the unique index) as a backstop; the service layer
// additionally normalizes addresses to lowercase before they get here.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			name                TEXT NOT NULL,
			email               TEXT NOT NULL COLLATE NOCASE,
			password_hash       TEXT NOT NULL DEFAULT '',
			github_id           INTEGER NOT NULL DEFAULT 0,
			reset_token_hash    TEXT NOT NULL DEFAULT '',
			reset_token_expires DATETIME,
			created_at          DATETIME NOT NULL,
			updated_at          DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email COLLATE NOCASE);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id)
			WHERE github_id != 0;
		CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token_hash)
			WHERE reset_token_hash != '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date        DATETIME NOT NULL,
			location    TEXT NOT NULL,
			organizer   TEXT NOT NULL DEFAULT '',
			creator_id  TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
		CREATE INDEX IF NOT EXISTS idx_events_creator_id ON events(creator_id);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	return nil
}
