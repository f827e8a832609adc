// Package projection maintains the disposable query database that projectors keep in
// sync with the event log.
package projection

import (
	"context"
	"database/sql"

	"github.com/c0deZ3R0/go-ledger-kit/bus"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Projector folds the events of one aggregate type into rows of the projection
// database. Apply must be idempotent and contiguous: it changes a row only for the
// event at the row's version plus one, so re-applied events change nothing and a
// skipped event leaves the row visibly behind its stream.
type Projector interface {
	// Name identifies the projector in logs and bus subscriptions.
	Name() string

	// AggregateType is the stream namespace the projector reads.
	AggregateType() string

	// EventTypes lists the event types Apply handles.
	EventTypes() []string

	Apply(ctx context.Context, db DBTX, evt eventlog.Event) error

	// ProjectedVersion returns the version recorded for aggregateID and whether a
	// row exists.
	ProjectedVersion(ctx context.Context, db DBTX, aggregateID string) (int, bool, error)
}

// Handles reports whether p subscribes to eventType.
func Handles(p Projector, eventType string) bool {
	for _, t := range p.EventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

// Subscribe applies every matching event published on b to store through p, one
// write transaction per event.
func Subscribe(b *bus.Bus, store *Store, p Projector) error {
	handler := bus.HandlerFunc(func(ctx context.Context, evt eventlog.Event) error {
		return store.Write(ctx, func(db DBTX) error {
			return p.Apply(ctx, db, evt)
		})
	})
	return b.Subscribe(p.Name(), handler, p.EventTypes()...)
}
