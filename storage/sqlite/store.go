// Package sqlite provides the SQLite implementation of the ledger event log.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	stdSync "sync"

	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

// Operation constants for consistent error reporting
const (
	opOpen       = "sqlite.Open"
	opAppend     = "sqlite.Append"
	opReadStream = "sqlite.ReadStream"
	opStreams    = "sqlite.Streams"
	opClose      = "sqlite.Close"

	component = "storage/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds configuration options for the event log Store.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string

	// Driver selects the database/sql driver: DriverMattn (default) or DriverModernc.
	Driver string

	// Logger is an optional logger. If nil, the default logger is used.
	Logger *logging.Logger

	// Pool and lock settings, see Options.
	Options Options
}

// DefaultConfig returns a Config with WAL journaling and the default pool for path.
func DefaultConfig(path string) *Config {
	return &Config{Path: path, Driver: DriverMattn}
}

// Store implements eventlog.Store on a single SQLite file.
type Store struct {
	db     *sql.DB
	mu     stdSync.RWMutex
	closed bool
	logger *logging.Logger
}

// Compile-time check to ensure Store satisfies the eventlog.Store interface
var _ eventlog.Store = (*Store)(nil)

// New opens the event log described by config and applies its schema.
func New(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("Path is required")
	}

	opts := config.Options
	opts.Driver = config.Driver
	opts.JournalMode = JournalWAL

	logger := logging.OrDefault(config.Logger).WithComponent(logging.Component(component))
	logger.DebugContext(ctx, "Opening event log",
		slog.String("path", config.Path),
		slog.String("driver", driverName(opts.Driver)),
	)

	db, err := Open(ctx, config.Path, opts)
	if err != nil {
		return nil, errors.WrapStorage(err, opOpen, component)
	}

	if err := ApplyMigrations(ctx, db, migrations, "migrations"); err != nil {
		db.Close()
		return nil, errors.WrapStorage(fmt.Errorf("failed to setup database schema: %w", err), opOpen, component)
	}

	return &Store{db: db, logger: logger}, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverMattn
	}
	return d
}

func (s *Store) checkOpen(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.WrapStorage(eventlog.ErrStoreClosed, op, component)
	}
	return nil
}

// Append writes evt inside one immediate transaction: the head check and the insert
// see the same snapshot, and the unique (type, id, version) key rejects a racing writer
// that slipped past the check.
func (s *Store) Append(ctx context.Context, stream eventlog.StreamID, evt eventlog.Event, expectedVersion int) (res eventlog.AppendResult, err error) {
	select {
	case <-ctx.Done():
		return res, errors.WrapOpComponent(ctx.Err(), opAppend, component)
	default:
	}
	if err := s.checkOpen(opAppend); err != nil {
		return res, err
	}
	if err := eventlog.ValidateAppend(stream, evt, expectedVersion); err != nil {
		return res, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, errors.WrapStorage(err, opAppend, component)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	head, err := streamHead(ctx, tx, stream)
	if err != nil {
		return res, errors.WrapStorage(err, opAppend, component)
	}
	if head != expectedVersion {
		err = errors.NewVersionConflict(errors.OpAppend, component, stream.String(), expectedVersion, head)
		return eventlog.AppendResult{Version: head}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (event_id, aggregate_type, aggregate_id, version, event_type, payload, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, stream.Type, stream.ID, evt.Version, evt.Type, string(evt.Payload), clock.Format(evt.Timestamp),
	)
	if err != nil {
		return res, s.insertError(ctx, stream, evt, expectedVersion, err)
	}

	if err = tx.Commit(); err != nil {
		return res, errors.WrapStorage(err, opAppend, component)
	}
	return eventlog.AppendResult{Success: true, Version: evt.Version}, nil
}

func (s *Store) insertError(ctx context.Context, stream eventlog.StreamID, evt eventlog.Event, expectedVersion int, err error) error {
	if !IsConstraintError(err) {
		return errors.WrapStorage(err, opAppend, component)
	}
	if strings.Contains(err.Error(), "events.event_id") {
		return errors.NewValidationError(errors.OpAppend, fmt.Errorf("event id %s already recorded", evt.ID))
	}
	actual := expectedVersion + 1
	if head, herr := streamHead(ctx, s.db, stream); herr == nil {
		actual = head
	}
	return errors.NewVersionConflict(errors.OpAppend, component, stream.String(), expectedVersion, actual)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func streamHead(ctx context.Context, q queryRower, stream eventlog.StreamID) (int, error) {
	var head int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_type = ? AND aggregate_id = ?`,
		stream.Type, stream.ID,
	).Scan(&head)
	return head, err
}

// ReadStream retrieves the events of one stream ordered by version.
func (s *Store) ReadStream(ctx context.Context, stream eventlog.StreamID) ([]eventlog.Event, error) {
	if err := s.checkOpen(opReadStream); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, aggregate_type, aggregate_id, version, event_type, payload, recorded_at
		 FROM events WHERE aggregate_type = ? AND aggregate_id = ? ORDER BY version ASC`,
		stream.Type, stream.ID,
	)
	if err != nil {
		return nil, errors.WrapStorage(err, opReadStream, component)
	}
	defer rows.Close()

	events := []eventlog.Event{}
	for rows.Next() {
		var (
			evt      eventlog.Event
			payload  string
			recorded string
		)
		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.Version, &evt.Type, &payload, &recorded); err != nil {
			return nil, errors.WrapStorage(fmt.Errorf("failed to scan event row: %w", err), opReadStream, component)
		}
		ts, err := clock.Parse(recorded)
		if err != nil {
			return nil, errors.NewCorruptStream(errors.OpRead, stream.String(), fmt.Errorf("event %s has unreadable timestamp %q: %w", evt.ID, recorded, err))
		}
		evt.Timestamp = ts
		evt.Payload = []byte(payload)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage(fmt.Errorf("error during row iteration: %w", err), opReadStream, component)
	}
	return events, nil
}

// Streams lists every stream and its head version.
func (s *Store) Streams(ctx context.Context) ([]eventlog.StreamInfo, error) {
	if err := s.checkOpen(opStreams); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT aggregate_type, aggregate_id, MAX(version) FROM events
		 GROUP BY aggregate_type, aggregate_id
		 ORDER BY aggregate_type, aggregate_id`)
	if err != nil {
		return nil, errors.WrapStorage(err, opStreams, component)
	}
	defer rows.Close()

	streams := []eventlog.StreamInfo{}
	for rows.Next() {
		var info eventlog.StreamInfo
		if err := rows.Scan(&info.Stream.Type, &info.Stream.ID, &info.Head); err != nil {
			return nil, errors.WrapStorage(err, opStreams, component)
		}
		streams = append(streams, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage(err, opStreams, component)
	}
	return streams, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return errors.WrapStorage(s.db.Close(), opClose, component)
}

