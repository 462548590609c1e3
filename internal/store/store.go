// Package store reads clinical records from the relational database owned by
// the worker process. It never writes outside Migrate and Seed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	_ "modernc.org/sqlite"            // Register sqlite as database/sql driver
)

// Dialect selects placeholder and DDL syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota + 1
	DialectPostgres
)

// String returns the database/sql driver name for the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "pgx"
	default:
		return "unknown"
	}
}

// ParseDialect maps a driver name from configuration to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("ParseDialect: unsupported driver %q", driver)
	}
}

// Store provides read access to patients, vitals, medications and history.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open opens and pings a single-connection pool. The returned Store owns the
// connection; Close releases it.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return New(db, dialect), nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind rewrites Postgres-style $N placeholders for SQLite. Queries in this
// package always number placeholders in argument order.
func (s *Store) rebind(query string) string {
	if s.dialect == DialectSQLite {
		return placeholderRe.ReplaceAllString(query, "?")
	}
	return query
}
