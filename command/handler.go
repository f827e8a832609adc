// Package command runs commands against aggregates: load, decide, append, publish.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c0deZ3R0/go-ledger-kit/aggregate"
	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

const (
	opCreate  = "command.Create"
	opExecute = "command.Execute"

	component = "command"
)

// Publisher delivers committed events, typically a *bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, evt eventlog.Event) error
}

// Result describes a committed command.
type Result[S any] struct {
	// Root is the aggregate after the new event.
	Root aggregate.Root[S]

	// Event is the event that was appended.
	Event eventlog.Event

	// PublishErr holds handler failures after the append. The command itself
	// succeeded; projections may lag until the next rebuild.
	PublishErr error
}

type settings struct {
	clock  clock.Clock
	newID  eventlog.IDGenerator
	logger *logging.Logger
}

// Option configures a Handler.
type Option func(*settings)

// WithClock sets the clock that stamps events.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithIDGenerator sets the generator for event ids.
func WithIDGenerator(g eventlog.IDGenerator) Option {
	return func(s *settings) { s.newID = g }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Handler executes commands of one aggregate kind.
type Handler[S, C any] struct {
	kind      aggregate.Kind[S, C]
	store     eventlog.Namespace
	publisher Publisher
	clock     clock.Clock
	newID     eventlog.IDGenerator
	logger    *logging.Logger
}

// New creates a handler writing kind's streams to store and publishing to publisher,
// which may be nil.
func New[S, C any](kind aggregate.Kind[S, C], store eventlog.Store, publisher Publisher, opts ...Option) *Handler[S, C] {
	cfg := settings{clock: clock.System{}, newID: eventlog.NewID}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.OrDefault(cfg.logger).WithComponent(logging.Component(component))
	return &Handler[S, C]{
		kind:      kind,
		store:     eventlog.NewNamespace(store, kind.Type()),
		publisher: publisher,
		clock:     cfg.clock,
		newID:     cfg.newID,
		logger:    &logging.Logger{Logger: logger.With(slog.String("aggregate_type", kind.Type()))},
	}
}

// Load rehydrates aggregate id. A stream without events is NOT_FOUND.
func (h *Handler[S, C]) Load(ctx context.Context, id string) (aggregate.Root[S], error) {
	events, err := h.store.ReadStream(ctx, id)
	if err != nil {
		return aggregate.Root[S]{}, err
	}
	if len(events) == 0 {
		return aggregate.Root[S]{}, errors.NewNotFound(errors.OpRead, fmt.Sprintf("%s %s", h.kind.Type(), id))
	}
	return aggregate.Rehydrate(h.kind, id, events)
}

// Create runs cmd against a new aggregate id without reading its stream. The append
// expects version 0, so an existing id surfaces as VERSION_CONFLICT.
func (h *Handler[S, C]) Create(ctx context.Context, id string, cmd C) (Result[S], error) {
	return h.run(ctx, opCreate, aggregate.Create(h.kind, id), cmd)
}

// Execute loads aggregate id, runs cmd against it and commits the resulting event.
// Conflicts are not retried.
func (h *Handler[S, C]) Execute(ctx context.Context, id string, cmd C) (Result[S], error) {
	root, err := h.Load(ctx, id)
	if err != nil {
		return Result[S]{}, err
	}
	return h.run(ctx, opExecute, root, cmd)
}

func (h *Handler[S, C]) run(ctx context.Context, op string, root aggregate.Root[S], cmd C) (Result[S], error) {
	meta := eventlog.Meta{EventID: h.newID(), Timestamp: h.clock.Now()}
	next, evt, err := aggregate.Decide(h.kind, root, cmd, meta)
	if err != nil {
		return Result[S]{}, err
	}

	if _, err := h.store.Append(ctx, evt, root.Version); err != nil {
		if errors.IsVersionConflict(err) {
			h.logger.LogWarn(ctx, err, "command lost a concurrent write", slog.String("op", op))
		}
		return Result[S]{}, err
	}

	h.logger.DebugContext(ctx, "event committed",
		slog.String("op", op),
		slog.String("stream", evt.Stream().String()),
		slog.String("event_type", evt.Type),
		slog.Int("version", evt.Version),
	)

	res := Result[S]{Root: next, Event: evt}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, evt); err != nil {
			h.logger.LogWarn(ctx, err, "event committed but not fully projected",
				slog.String("stream", evt.Stream().String()),
				slog.Int("version", evt.Version),
			)
			res.PublishErr = err
		}
	}
	return res, nil
}
