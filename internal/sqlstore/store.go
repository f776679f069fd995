// Package sqlstore is the SQLite storage backend for seedbed: it adapts
// database tables as storage media so dataset definitions load straight
// into a SQLite database and unload out of it again, inside the engine's
// transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite database used as a fixture target.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path
// (":memory:" for a throwaway in-test database).
//
// The database is configured with:
//   - WAL mode for concurrent read access
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// SQLite only supports one writer at a time, so the connection pool is
// pinned to a single connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer going through the loading engine.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Table describes one storable target: a table whose rows the fixture
// owns. Columns beyond these may exist in the schema; the medium only
// writes what a dataset row declares.
type Table struct {
	Name string
}

// CreateTable creates a fixture table if it does not exist: an
// auto-incrementing integer id plus the given columns with default
// affinity. Meant for tests and seeding tools; applications usually
// point seedbed at their real schema instead.
func (s *Store) CreateTable(ctx context.Context, name string, columns ...string) (*Table, error) {
	quoted := make([]string, 0, len(columns)+1)
	quoted = append(quoted, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	for _, c := range columns {
		quoted = append(quoted, quoteIdent(c))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`,
		quoteIdent(name), strings.Join(quoted, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table %s: %w", name, err)
	}
	return &Table{Name: name}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
