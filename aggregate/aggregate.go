// Package aggregate folds event streams into entity state and turns commands into
// new events. Entity packages implement Kind; the functions here enforce the stream
// invariants shared by every kind.
package aggregate

import (
	stderrors "errors"
	"fmt"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
)

// Kind describes one aggregate type. S is its state, C its closed set of commands.
// Apply and Decide must be pure.
type Kind[S any, C any] interface {
	// Type is the aggregate type tag stored on every event.
	Type() string

	// Registry decodes the payloads of this kind's events.
	Registry() *eventlog.Registry

	// Zero returns the state of an aggregate that has no events.
	Zero(id string) S

	// Apply folds one decoded payload into state.
	Apply(state S, payload eventlog.Payload) (S, error)

	// Decide validates cmd against root and returns the payload of the resulting event,
	// or a VALIDATION / INVALID_TRANSITION error.
	Decide(root Root[S], cmd C) (eventlog.Payload, error)
}

// Root is an aggregate instance at a known version.
type Root[S any] struct {
	ID      string
	Type    string
	Version int
	State   S
}

// Exists reports whether the aggregate has at least one event.
func (r Root[S]) Exists() bool { return r.Version > 0 }

// Stream returns the id of the aggregate's stream.
func (r Root[S]) Stream() eventlog.StreamID {
	return eventlog.StreamID{Type: r.Type, ID: r.ID}
}

// ErrUnsupportedEvent is returned by Kind.Apply for a payload it does not handle.
var ErrUnsupportedEvent = stderrors.New("unsupported event payload")

// Create returns a fresh aggregate at version 0.
func Create[S, C any](kind Kind[S, C], id string) Root[S] {
	return Root[S]{ID: id, Type: kind.Type(), State: kind.Zero(id)}
}

// Rehydrate folds events, in order, onto a fresh aggregate. Any gap in versions, event
// of another stream, unknown event type or undecodable payload is a CORRUPT_STREAM error.
func Rehydrate[S, C any](kind Kind[S, C], id string, events []eventlog.Event) (Root[S], error) {
	root := Create(kind, id)
	stream := root.Stream().String()
	for i, evt := range events {
		if evt.Version != i+1 {
			return root, errors.NewCorruptStream(errors.OpRehydrate, stream,
				fmt.Errorf("expected version %d, found %d (event %s)", i+1, evt.Version, evt.ID))
		}
		if evt.AggregateID != id || evt.AggregateType != root.Type {
			return root, errors.NewCorruptStream(errors.OpRehydrate, stream,
				fmt.Errorf("event %s belongs to %s", evt.ID, evt.Stream()))
		}
		next, err := apply(kind, root.State, evt)
		if err != nil {
			return root, errors.NewCorruptStream(errors.OpRehydrate, stream, err)
		}
		root.State = next
		root.Version = evt.Version
	}
	return root, nil
}

func apply[S, C any](kind Kind[S, C], state S, evt eventlog.Event) (S, error) {
	payload, err := kind.Registry().Decode(evt)
	if err != nil {
		return state, err
	}
	next, err := kind.Apply(state, payload)
	if err != nil {
		return state, fmt.Errorf("apply %s (version %d): %w", evt.Type, evt.Version, err)
	}
	return next, nil
}

// Decide runs cmd against root and returns the new event at root.Version+1 together
// with the aggregate after that event. It performs no I/O; meta supplies the event id
// and timestamp.
func Decide[S, C any](kind Kind[S, C], root Root[S], cmd C, meta eventlog.Meta) (Root[S], eventlog.Event, error) {
	payload, err := kind.Decide(root, cmd)
	if err != nil {
		return root, eventlog.Event{}, err
	}
	evt, err := eventlog.NewEvent(root.Stream(), root.Version+1, meta, payload)
	if err != nil {
		return root, eventlog.Event{}, errors.NewValidationError(errors.OpDecide, err)
	}
	next, err := kind.Apply(root.State, payload)
	if err != nil {
		return root, eventlog.Event{}, fmt.Errorf("apply decided %s: %w", evt.Type, err)
	}
	return Root[S]{ID: root.ID, Type: root.Type, Version: evt.Version, State: next}, evt, nil
}
