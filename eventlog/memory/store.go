// Package memory provides an in-process eventlog.Store for tests and tooling.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
)

const (
	opAppend     = "memory.Append"
	opReadStream = "memory.ReadStream"
	opStreams    = "memory.Streams"

	component = "eventlog/memory"
)

// Store keeps streams in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	streams map[eventlog.StreamID][]eventlog.Event
	closed  bool
}

var _ eventlog.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{streams: map[eventlog.StreamID][]eventlog.Event{}}
}

func (s *Store) Append(ctx context.Context, stream eventlog.StreamID, evt eventlog.Event, expectedVersion int) (eventlog.AppendResult, error) {
	if err := ctx.Err(); err != nil {
		return eventlog.AppendResult{}, errors.WrapOpComponent(err, opAppend, component)
	}
	if err := eventlog.ValidateAppend(stream, evt, expectedVersion); err != nil {
		return eventlog.AppendResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return eventlog.AppendResult{}, errors.NewStorageError(errors.OpAppend, component, eventlog.ErrStoreClosed)
	}

	head := len(s.streams[stream])
	if head != expectedVersion {
		return eventlog.AppendResult{Version: head},
			errors.NewVersionConflict(errors.OpAppend, component, stream.String(), expectedVersion, head)
	}
	s.streams[stream] = append(s.streams[stream], clone(evt))
	return eventlog.AppendResult{Success: true, Version: head + 1}, nil
}

func (s *Store) ReadStream(ctx context.Context, stream eventlog.StreamID) ([]eventlog.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapOpComponent(err, opReadStream, component)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.NewStorageError(errors.OpRead, component, eventlog.ErrStoreClosed)
	}
	src := s.streams[stream]
	out := make([]eventlog.Event, len(src))
	for i, evt := range src {
		out[i] = clone(evt)
	}
	return out, nil
}

func (s *Store) Streams(ctx context.Context) ([]eventlog.StreamInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapOpComponent(err, opStreams, component)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.NewStorageError(errors.OpRead, component, eventlog.ErrStoreClosed)
	}
	out := make([]eventlog.StreamInfo, 0, len(s.streams))
	for id, events := range s.streams {
		out = append(out, eventlog.StreamInfo{Stream: id, Head: len(events)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stream.Type != out[j].Stream.Type {
			return out[i].Stream.Type < out[j].Stream.Type
		}
		return out[i].Stream.ID < out[j].Stream.ID
	})
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Inject appends evt without any checks. Tests use it to build corrupt streams.
func (s *Store) Inject(evt eventlog.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[evt.Stream()] = append(s.streams[evt.Stream()], clone(evt))
}

func clone(evt eventlog.Event) eventlog.Event {
	if evt.Payload != nil {
		evt.Payload = append([]byte(nil), evt.Payload...)
	}
	return evt
}
