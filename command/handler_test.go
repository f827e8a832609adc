package command

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/bus"
	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog/memory"
	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newHandler(t *testing.T, store eventlog.Store, pub Publisher) *Handler[goal.State, goal.Command] {
	t.Helper()
	return New[goal.State, goal.Command](goal.Kind{}, store, pub,
		WithClock(clock.NewFixed(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), time.Second)),
		WithIDGenerator(eventlog.Sequence("evt")),
		WithLogger(logging.Discard()),
	)
}

func TestCreateThenExecute(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := bus.New(logging.Discard())
	var published []string
	require.NoError(t, b.Subscribe("recorder", bus.HandlerFunc(func(_ context.Context, evt eventlog.Event) error {
		published = append(published, fmt.Sprintf("%s@%d", evt.Type, evt.Version))
		return nil
	})))
	h := newHandler(t, store, b)

	res, err := h.Create(ctx, "g-1", goal.Add{Title: "Ship"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Root.Version)
	assert.Equal(t, "evt-1", res.Event.ID)
	assert.NoError(t, res.PublishErr)

	res, err = h.Execute(ctx, "g-1", goal.Start{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Root.Version)
	assert.Equal(t, goal.StatusDoing, res.Root.State.Status)

	events, err := store.ReadStream(ctx, eventlog.StreamID{Type: goal.AggregateType, ID: "g-1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 1, 0, time.UTC), events[1].Timestamp)
	assert.Equal(t, []string{"goal.added@1", "goal.started@2"}, published)

	loaded, err := h.Load(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, res.Root, loaded)
}

func TestExecuteOnMissingAggregate(t *testing.T) {
	h := newHandler(t, memory.New(), nil)
	_, err := h.Execute(context.Background(), "nope", goal.Start{})
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateExistingIdConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, memory.New(), nil)
	_, err := h.Create(ctx, "g-1", goal.Add{Title: "first"})
	require.NoError(t, err)

	_, err = h.Create(ctx, "g-1", goal.Add{Title: "second"})
	assert.True(t, errors.IsVersionConflict(err))
}

func TestRejectedCommandAppendsNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	h := newHandler(t, store, nil)
	_, err := h.Create(ctx, "g-1", goal.Add{Title: "Ship"})
	require.NoError(t, err)

	_, err = h.Execute(ctx, "g-1", goal.Complete{})
	assert.True(t, errors.IsInvalidTransition(err))

	events, err := store.ReadStream(ctx, eventlog.StreamID{Type: goal.AggregateType, ID: "g-1"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := bus.New(logging.Discard())
	require.NoError(t, b.Subscribe("broken", bus.HandlerFunc(func(context.Context, eventlog.Event) error {
		return fmt.Errorf("projection offline")
	})))
	h := newHandler(t, store, b)

	res, err := h.Create(ctx, "g-1", goal.Add{Title: "Ship"})
	require.NoError(t, err)
	require.Error(t, res.PublishErr)
	assert.True(t, errors.IsProjection(res.PublishErr))

	events, err := store.ReadStream(ctx, eventlog.StreamID{Type: goal.AggregateType, ID: "g-1"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// gatedStore holds every append until all readers have loaded the same head.
type gatedStore struct {
	eventlog.Store
	reads   atomic.Int32
	readers int32
	ready   chan struct{}
}

func (g *gatedStore) ReadStream(ctx context.Context, s eventlog.StreamID) ([]eventlog.Event, error) {
	events, err := g.Store.ReadStream(ctx, s)
	if g.reads.Add(1) == g.readers {
		close(g.ready)
	}
	return events, err
}

func (g *gatedStore) Append(ctx context.Context, s eventlog.StreamID, evt eventlog.Event, expected int) (eventlog.AppendResult, error) {
	<-g.ready
	return g.Store.Append(ctx, s, evt, expected)
}

func TestConcurrentCommandsOneWins(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	seed := newHandler(t, base, nil)
	_, err := seed.Create(ctx, "g-1", goal.Add{Title: "Ship"})
	require.NoError(t, err)

	gated := &gatedStore{Store: base, readers: 2, ready: make(chan struct{})}
	h := New[goal.State, goal.Command](goal.Kind{}, gated, nil, WithLogger(logging.Discard()))

	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for _, cmd := range []goal.Command{goal.Start{}, goal.Update{Title: ptr("Ship it")}} {
		g.Go(func() error {
			_, err := h.Execute(ctx, "g-1", cmd)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.IsVersionConflict(err):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(1), conflicts.Load())

	events, err := base.ReadStream(ctx, eventlog.StreamID{Type: goal.AggregateType, ID: "g-1"})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func ptr(s string) *string { return &s }
