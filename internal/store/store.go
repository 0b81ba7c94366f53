package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO) registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/abhisek/assessd/internal/quiz"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store owns the database handle and hands out repositories bound either
// to the pool or to a transaction.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
}

// Open connects to the database. It does not migrate; call Migrate before
// serving traffic.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		sqlDriver string
		d         string
	)
	switch driver {
	case DriverSQLite, "":
		sqlDriver, d = "sqlite", dialect.SQLite
	case DriverPostgres:
		sqlDriver, d = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// A single connection serializes transactions, which is what the
		// readiness read-modify-write needs on SQLite.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, drv: entsql.OpenDB(d, db), dialect: d}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Repos returns repositories that run each statement on the pool.
func (s *Store) Repos() Repos {
	return newRepos(&conn{q: s.drv, dialect: s.dialect})
}

// InTx runs fn with repositories bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	if err := fn(newRepos(&conn{q: tx, dialect: s.dialect, inTx: true})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// applyPragmas configures SQLite for a small concurrent server.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultSQLitePath resolves the database file path in priority order:
// 1. $XDG_DATA_HOME/assessd/assessd.db
// 2. ~/.local/share/assessd/assessd.db
func DefaultSQLitePath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "assessd", "assessd.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// unavailable wraps a driver failure as quiz.ErrStoreUnavailable. Errors
// that already carry a domain sentinel pass through untouched.
func unavailable(op string, err error) error {
	for _, sentinel := range []error{
		quiz.ErrAttemptNotFound, quiz.ErrQuizNotFound, quiz.ErrLessonNotFound,
		quiz.ErrCourseNotFound, quiz.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", quiz.ErrStoreUnavailable, op, err)
}
