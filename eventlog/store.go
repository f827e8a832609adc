package eventlog

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
)

// ErrStoreClosed is returned by a store after Close.
var ErrStoreClosed = stderrors.New("event store is closed")

// AppendResult reports the outcome of an append. On conflict Success is false and
// Version holds the actual head of the stream.
type AppendResult struct {
	Success bool
	Version int
}

// StreamInfo describes one stream known to the store.
type StreamInfo struct {
	Stream StreamID
	Head   int
}

// Store is the durable append-only event log.
type Store interface {
	// Append writes evt iff the head of stream equals expectedVersion. A mismatch
	// returns a VERSION_CONFLICT error and leaves the stream unchanged.
	Append(ctx context.Context, stream StreamID, evt Event, expectedVersion int) (AppendResult, error)

	// ReadStream returns the events of stream ordered by version. An unknown stream
	// yields an empty slice.
	ReadStream(ctx context.Context, stream StreamID) ([]Event, error)

	// Streams lists every stream with its head version, ordered by type then id.
	Streams(ctx context.Context) ([]StreamInfo, error)

	Close() error
}

// ValidateAppend checks the arguments of an append before any storage is touched.
func ValidateAppend(stream StreamID, evt Event, expectedVersion int) error {
	var problems []string
	if strings.TrimSpace(stream.Type) == "" || strings.TrimSpace(stream.ID) == "" {
		problems = append(problems, "stream type and id are required")
	}
	if evt.AggregateType != stream.Type || evt.AggregateID != stream.ID {
		problems = append(problems, fmt.Sprintf("event belongs to %s, not %s", evt.Stream(), stream))
	}
	if expectedVersion < 0 {
		problems = append(problems, fmt.Sprintf("expected version %d is negative", expectedVersion))
	}
	if evt.Version != expectedVersion+1 {
		problems = append(problems, fmt.Sprintf("event version %d does not follow expected version %d", evt.Version, expectedVersion))
	}
	if evt.ID == "" {
		problems = append(problems, "event id is required")
	}
	if evt.Type == "" {
		problems = append(problems, "event type is required")
	}
	if evt.Timestamp.IsZero() {
		problems = append(problems, "event timestamp is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.NewValidationError(errors.OpAppend, fmt.Errorf("%s", strings.Join(problems, "; ")))
}

// Namespace is a Store bound to one aggregate type.
type Namespace struct {
	store         Store
	aggregateType string
}

// NewNamespace binds store to aggregateType.
func NewNamespace(store Store, aggregateType string) Namespace {
	return Namespace{store: store, aggregateType: aggregateType}
}

func (n Namespace) Type() string { return n.aggregateType }

// Stream returns the stream id of aggregate id within the namespace.
func (n Namespace) Stream(id string) StreamID {
	return StreamID{Type: n.aggregateType, ID: id}
}

// Append appends evt to the stream of evt.AggregateID.
func (n Namespace) Append(ctx context.Context, evt Event, expectedVersion int) (AppendResult, error) {
	return n.store.Append(ctx, n.Stream(evt.AggregateID), evt, expectedVersion)
}

// ReadStream reads the stream of aggregate id.
func (n Namespace) ReadStream(ctx context.Context, id string) ([]Event, error) {
	return n.store.ReadStream(ctx, n.Stream(id))
}

// Streams lists the streams of the namespace.
func (n Namespace) Streams(ctx context.Context) ([]StreamInfo, error) {
	all, err := n.store.Streams(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, s := range all {
		if s.Stream.Type == n.aggregateType {
			out = append(out, s)
		}
	}
	return out, nil
}
