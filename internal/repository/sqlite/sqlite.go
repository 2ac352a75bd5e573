// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C toolchain at build time and painful
// cross-compilation. modernc.org/sqlite is a pure Go translation of SQLite, so the
// server and the maintenance CLI build anywhere Go builds.
//
// ONE CONNECTION:
// SQLite allows a single writer at a time. We cap the pool at one open connection,
// which serialises writes inside the process (no SQLITE_BUSY under load) and makes
// ":memory:" databases behave: every pooled connection to ":memory:" would otherwise
// get its own, empty, database.
//
// TIMESTAMPS:
// All times are written in UTC so that created_at sorts lexically in insertion order
// and substr(created_at, 1, 10) is the calendar day.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// The blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/booklinks.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while the single writer holds the lock.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Edges, list items, upvotes and
	// comments cascade away with their parents.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is safe to re-run; columns added after the first
// release go through addColumnIfNotExists.
func (db *DB) migrate() error {
	// users: email and github_id are both optional but UNIQUE when present.
	// NULL never collides with NULL, so "" is stored as NULL (see nullString).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			login         TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			bio           TEXT NOT NULL DEFAULT '',
			is_admin      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS books (
			id          TEXT PRIMARY KEY,
			slug        TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL,
			author      TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			cover_url   TEXT NOT NULL DEFAULT '',
			added_by    TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating books table: %w", err)
	}

	// Discovery bookkeeping arrived after books existed.
	if err := db.addColumnIfNotExists("books", "references_discovered",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding references_discovered to books: %w", err)
	}
	if err := db.addColumnIfNotExists("books", "references_discovered_at",
		"DATETIME"); err != nil {
		return fmt.Errorf("adding references_discovered_at to books: %w", err)
	}

	// "references" is an SQL keyword, hence book_references.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS book_references (
			id                 TEXT PRIMARY KEY,
			source_book_id     TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			referenced_book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			context            TEXT NOT NULL DEFAULT '',
			page_number        INTEGER,
			source             TEXT NOT NULL DEFAULT 'user',
			source_url         TEXT NOT NULL DEFAULT '',
			added_by           TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (source_book_id, referenced_book_id)
		);
		CREATE INDEX IF NOT EXISTS idx_book_references_referenced ON book_references(referenced_book_id);
	`)
	if err != nil {
		return fmt.Errorf("creating book_references table: %w", err)
	}

	if err := db.addColumnIfNotExists("book_references", "source_verified",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding source_verified to book_references: %w", err)
	}
	if err := db.addColumnIfNotExists("book_references", "verification_date",
		"DATETIME"); err != nil {
		return fmt.Errorf("adding verification_date to book_references: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reading_lists (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			slug        TEXT NOT NULL UNIQUE,
			is_public   INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reading_lists_user_id ON reading_lists(user_id);

		CREATE TABLE IF NOT EXISTS reading_list_items (
			id              TEXT PRIMARY KEY,
			reading_list_id TEXT NOT NULL REFERENCES reading_lists(id) ON DELETE CASCADE,
			book_id         TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			position        INTEGER NOT NULL DEFAULT 0,
			notes           TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (reading_list_id, book_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating reading list tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reference_upvotes (
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reference_id TEXT NOT NULL REFERENCES book_references(id) ON DELETE CASCADE,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, reference_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reference_upvotes_reference ON reference_upvotes(reference_id);

		CREATE TABLE IF NOT EXISTS reference_comments (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reference_id TEXT NOT NULL REFERENCES book_references(id) ON DELETE CASCADE,
			content      TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reference_comments_reference ON reference_comments(reference_id);
	`)
	if err != nil {
		return fmt.Errorf("creating engagement tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			message     TEXT NOT NULL,
			email       TEXT NOT NULL DEFAULT '',
			page_url    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'new',
			admin_notes TEXT NOT NULL DEFAULT '',
			user_id     TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating feedback table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent; safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// nullString maps "" to NULL for optional UNIQUE or foreign-key columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// escapeLike escapes LIKE wildcards in user input; queries use ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
