package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Go SQLite drivers: mattn (cgo) registers "sqlite3", modernc (pure Go) registers "sqlite".
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Journal modes used by the ledger stores.
const (
	JournalWAL    = "WAL"
	JournalDelete = "DELETE"
)

// Options configure how a database file is opened.
type Options struct {
	// Driver is DriverMattn (default) or DriverModernc.
	Driver string

	// JournalMode defaults to WAL.
	JournalMode string

	// BusyTimeout is how long a writer waits for the file lock. Default: 5s
	BusyTimeout time.Duration

	// Connection pool settings.
	// Defaults: MaxOpen=8, MaxIdle=2, Lifetime=1h
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (o *Options) setDefaults() {
	if o.Driver == "" {
		o.Driver = DriverMattn
	}
	if o.JournalMode == "" {
		o.JournalMode = JournalWAL
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = 8
	}
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 2
	}
	if o.ConnMaxLifetime == 0 {
		o.ConnMaxLifetime = time.Hour
	}
}

// ValidDriver reports whether name is a supported driver.
func ValidDriver(name string) bool {
	return name == DriverMattn || name == DriverModernc
}

// DSN builds the connection string for path. Every connection in the pool gets the
// same pragmas, and transactions take the write lock when they begin.
func DSN(path string, opts Options) (string, error) {
	opts.setDefaults()
	busy := opts.BusyTimeout.Milliseconds()
	q := url.Values{}
	switch opts.Driver {
	case DriverMattn:
		q.Set("_journal_mode", opts.JournalMode)
		q.Set("_busy_timeout", fmt.Sprint(busy))
		q.Set("_synchronous", "NORMAL")
		q.Set("_txlock", "immediate")
	case DriverModernc:
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", opts.JournalMode))
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		q.Add("_pragma", "synchronous(NORMAL)")
		q.Set("_txlock", "immediate")
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", opts.Driver)
	}
	return "file:" + path + "?" + q.Encode(), nil
}

// Open opens (creating if needed) the database file at path and verifies the connection.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	opts.setDefaults()
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn, err := DSN(path, opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	return db, nil
}

// IsConstraintError reports whether err is a SQLite constraint violation.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}
