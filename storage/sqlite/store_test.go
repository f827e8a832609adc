package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog/eventlogtest"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

func setupTestDB(t *testing.T, driver string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := New(context.Background(), &Config{Path: path, Driver: driver, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStoreContract(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			eventlogtest.Run(t, func(t *testing.T) eventlog.Store {
				store, _ := setupTestDB(t, driver)
				return store
			})
		})
	}
}

func TestEventsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	store, path := setupTestDB(t, DriverMattn)
	stream := eventlog.StreamID{Type: "goal", ID: "g-1"}
	for v := 1; v <= 2; v++ {
		_, err := store.Append(ctx, stream, eventlogtest.NewTestEvent(stream, v), v-1)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	reopened, err := New(ctx, &Config{Path: path, Logger: logging.Discard()})
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.ReadStream(ctx, stream)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventlogtest.NewTestEvent(stream, 2), events[1])

	_, err = reopened.Append(ctx, stream, eventlogtest.NewTestEvent(stream, 3), 2)
	require.NoError(t, err)
}

func TestEventsAreImmutable(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestDB(t, DriverMattn)
	stream := eventlog.StreamID{Type: "goal", ID: "g-1"}
	_, err := store.Append(ctx, stream, eventlogtest.NewTestEvent(stream, 1), 0)
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `UPDATE events SET payload = '{}'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")

	_, err = store.db.ExecContext(ctx, `DELETE FROM events`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")
}

func TestDuplicateEventIDIsValidationError(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestDB(t, DriverMattn)
	a := eventlog.StreamID{Type: "goal", ID: "g-1"}
	b := eventlog.StreamID{Type: "goal", ID: "g-2"}

	_, err := store.Append(ctx, a, eventlogtest.NewTestEvent(a, 1), 0)
	require.NoError(t, err)

	dup := eventlogtest.NewTestEvent(b, 1)
	dup.ID = eventlogtest.NewTestEvent(a, 1).ID
	_, err = store.Append(ctx, b, dup, 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "got %v", err)

	events, err := store.ReadStream(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCorruptTimestampIsReported(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestDB(t, DriverMattn)
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO events (event_id, aggregate_type, aggregate_id, version, event_type, payload, recorded_at)
		 VALUES ('e-1', 'goal', 'g-1', 1, 'goal.added', '{}', 'yesterday')`)
	require.NoError(t, err)

	_, err = store.ReadStream(ctx, eventlog.StreamID{Type: "goal", ID: "g-1"})
	require.Error(t, err)
	assert.True(t, errors.IsCorruptStream(err))
}

func TestWALEnabled(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			store, _ := setupTestDB(t, driver)
			var journalMode string
			require.NoError(t, store.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
			assert.Equal(t, "wal", strings.ToLower(journalMode))

			var busyTimeout int
			require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout;").Scan(&busyTimeout))
			assert.Equal(t, 5000, busyTimeout)
		})
	}
}

func TestDSN(t *testing.T) {
	dsn, err := DSN("/tmp/x.db", Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/x.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_journal_mode=WAL")

	dsn, err = DSN("/tmp/x.db", Options{Driver: DriverModernc, JournalMode: JournalDelete})
	require.NoError(t, err)
	assert.Contains(t, dsn, "_pragma=journal_mode%28DELETE%29")

	_, err = DSN("/tmp/x.db", Options{Driver: "postgres"})
	assert.Error(t, err)
	assert.False(t, ValidDriver("postgres"))
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	assert.Error(t, err)
	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "events.db")
	store, err := New(context.Background(), &Config{Path: path, Logger: logging.Discard()})
	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
