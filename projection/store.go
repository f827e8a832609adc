package projection

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	stdSync "sync"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/c0deZ3R0/go-ledger-kit/storage/sqlite"
)

const (
	opOpen   = "projection.Open"
	opRead   = "projection.Read"
	opWrite  = "projection.Write"
	opStage  = "projection.Stage"
	opCommit = "projection.Commit"
	opClose  = "projection.Close"

	component = "projection"
)

// ErrClosed is returned by a Store or Staged after Close, Commit or Abort.
var ErrClosed = stderrors.New("projection store is closed")

// Config describes the live projection database.
type Config struct {
	// Path of the live database file.
	Path string

	// Driver is sqlite.DriverMattn (default) or sqlite.DriverModernc.
	Driver string

	// Schema holds the .sql migrations at its root, applied once per file.
	Schema fs.FS

	// Logger is optional.
	Logger *logging.Logger
}

// Store owns the live projection database. It uses the rollback journal so the file
// can be replaced as a whole by a staged rebuild.
type Store struct {
	mu     stdSync.RWMutex
	db     *sql.DB
	closed bool

	path   string
	opts   sqlite.Options
	schema fs.FS
	logger *logging.Logger
}

// Open opens (creating if needed) the live projection database and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("projection path is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("projection schema is required")
	}
	s := &Store{
		path: cfg.Path,
		opts: sqlite.Options{
			Driver:       cfg.Driver,
			JournalMode:  sqlite.JournalDelete,
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		schema: cfg.Schema,
		logger: logging.OrDefault(cfg.Logger).WithComponent(logging.Component(component)),
	}
	db, err := s.open(ctx, s.path)
	if err != nil {
		return nil, errors.WrapStorage(err, opOpen, component)
	}
	s.db = db
	return s, nil
}

func (s *Store) open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sqlite.Open(ctx, path, s.opts)
	if err != nil {
		return nil, err
	}
	if err := sqlite.ApplyMigrations(ctx, db, s.schema, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply projection schema: %w", err)
	}
	return db, nil
}

// Path returns the live database file.
func (s *Store) Path() string { return s.path }

// Read runs fn against the live database.
func (s *Store) Read(ctx context.Context, fn func(DBTX) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.WrapStorage(ErrClosed, opRead, component)
	}
	return fn(s.db)
}

// Write runs fn inside one transaction on the live database.
func (s *Store) Write(ctx context.Context, fn func(DBTX) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.WrapStorage(ErrClosed, opWrite, component)
	}
	return inTx(ctx, s.db, opWrite, fn)
}

func inTx(ctx context.Context, db *sql.DB, op string, fn func(DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStorage(err, op, component)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.WrapStorage(err, op, component)
	}
	return nil
}

// Stage creates an empty database next to the live one for a rebuild. The caller
// must Commit or Abort it. Commit renames over the live file, so another process
// still holding the old file open keeps writing to it; its rows lag until the next
// rebuild.
func (s *Store) Stage(ctx context.Context) (*Staged, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, errors.WrapStorage(ErrClosed, opStage, component)
	}

	path := fmt.Sprintf("%s.rebuild-%s", s.path, uuid.NewString())
	db, err := s.open(ctx, path)
	if err != nil {
		s.removeFiles(path)
		return nil, errors.WrapStorage(err, opStage, component)
	}
	s.logger.DebugContext(ctx, "staged projection database", slog.String("path", path))
	return &Staged{store: s, db: db, path: path}, nil
}

// swap replaces the live file with path and reopens it. On a failed rename the old
// live file is reopened.
func (s *Store) swap(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close live database: %w", err)
	}
	renameErr := os.Rename(path, s.path)

	db, err := s.open(ctx, s.path)
	if err != nil {
		s.closed = true
		return stderrors.Join(renameErr, fmt.Errorf("reopen live database: %w", err))
	}
	s.db = db
	if renameErr != nil {
		return fmt.Errorf("replace live database: %w", renameErr)
	}
	return nil
}

// Close closes the live database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.WrapStorage(s.db.Close(), opClose, component)
}

// Staged is a projection database being rebuilt beside the live one.
type Staged struct {
	store *Store
	db    *sql.DB
	path  string
	done  bool
}

// Path returns the staged database file.
func (st *Staged) Path() string { return st.path }

// Write runs fn inside one transaction on the staged database.
func (st *Staged) Write(ctx context.Context, fn func(DBTX) error) error {
	if st.done {
		return errors.WrapStorage(ErrClosed, opWrite, component)
	}
	return inTx(ctx, st.db, opWrite, fn)
}

// Commit closes the staged database and atomically renames it over the live file.
// On failure the staged file is removed and the live file is left as it was.
func (st *Staged) Commit(ctx context.Context) error {
	if st.done {
		return errors.WrapStorage(ErrClosed, opCommit, component)
	}
	st.done = true

	if err := st.db.Close(); err != nil {
		st.store.removeFiles(st.path)
		return errors.WrapStorage(fmt.Errorf("close staged database: %w", err), opCommit, component)
	}
	if err := st.store.swap(ctx, st.path); err != nil {
		st.store.removeFiles(st.path)
		return errors.WrapStorage(err, opCommit, component)
	}
	st.store.logger.DebugContext(ctx, "projection database replaced", slog.String("path", st.store.path))
	return nil
}

// Abort discards the staged database. It is a no-op after Commit.
func (st *Staged) Abort() error {
	if st.done {
		return nil
	}
	st.done = true
	err := st.db.Close()
	st.store.removeFiles(st.path)
	return err
}

func (s *Store) removeFiles(path string) {
	for _, p := range []string{path, path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove staged file",
				slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}
