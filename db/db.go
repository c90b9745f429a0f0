// ABOUTME: Cache store connection management and dialect selection
// ABOUTME: Opens SQLite (WAL, single connection) or Postgres via pgx based on the DSN
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects SQL syntax differences between backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Store is the multi-tenant cache. Every statement is scoped by user_id.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenDatabase opens a SQLite cache at path with WAL mode.
func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	return db, nil
}

// IsPostgresDSN reports whether dsn points at a Postgres server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open opens the cache store for dsn (a file path or a postgres:// URL) and
// initializes its schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	var (
		conn    *sql.DB
		dialect Dialect
		err     error
	)

	if IsPostgresDSN(dsn) {
		dialect = Postgres
		conn, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to reach postgres: %w", err)
		}
	} else {
		dialect = SQLite
		conn, err = OpenDatabase(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
	}

	store := NewStore(conn, dialect)
	if err := store.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewStore wraps an existing connection. The schema is not touched.
func NewStore(conn *sql.DB, dialect Dialect) *Store {
	return &Store{db: conn, dialect: dialect, now: time.Now}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the connection.
func (s *Store) Close() error { return s.db.Close() }

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// distinct returns the null-safe inequality operator for the dialect.
func (s *Store) distinct() string {
	if s.dialect == Postgres {
		return "IS DISTINCT FROM"
	}
	return "IS NOT"
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}
