// Package store persists sync profiles, the reconciliation baseline,
// sync history, and conflict records in an embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure Go driver, registers as "sqlite"

	"github.com/foldkeep/foldsync/internal/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// walJournalSizeLimit bounds how large the WAL file is allowed to grow
// before SQLite forces a checkpoint.
const walJournalSizeLimit = 64 * 1024 * 1024

// Store wraps a single *sql.DB handle behind a mutex. SQLite permits only
// one writer at a time; serializing here avoids SQLITE_BUSY surfacing to
// callers as a transient, hard-to-retry error.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at dbPath,
// applies any pending migrations, and configures WAL mode. Use ":memory:"
// in tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite at %s: %w", apperr.ErrDatabase, dbPath, err)
	}

	// SQLite has no real concurrent-writer story; cap the pool at one
	// connection so database/sql's own pooling can't multiplex writers
	// behind the Store's mutex.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: set pragma %q: %w", apperr.ErrDatabase, stmt, err)
		}
	}

	return nil
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: creating migration sub-filesystem: %w", apperr.ErrDatabase, err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("%w: creating migration provider: %w", apperr.ErrDatabase, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("%w: running migrations: %w", apperr.ErrDatabase, err)
	}

	for _, r := range results {
		logger.Info("applied migration", "source", r.Source.Path, "duration_ms", r.Duration.Milliseconds())
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, serialized against every other
// Store call via mu, committing on success and rolling back on error or
// panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", apperr.ErrDatabase, err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %w", apperr.ErrDatabase, err)
	}

	committed = true

	return nil
}

// withConn serializes a read-only operation against the shared connection
// without opening a transaction.
func (s *Store) withConn(fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.db)
}
