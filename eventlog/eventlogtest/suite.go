// Package eventlogtest holds the behavioral suite every eventlog.Store must pass.
package eventlogtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) eventlog.Store

var base = time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)

// NewTestEvent builds a valid event for stream at version.
func NewTestEvent(stream eventlog.StreamID, version int) eventlog.Event {
	payload, _ := json.Marshal(map[string]any{"n": version, "note": "blocked on review"})
	return eventlog.Event{
		ID:            fmt.Sprintf("%s-evt-%d", stream.ID, version),
		AggregateID:   stream.ID,
		AggregateType: stream.Type,
		Type:          "test.happened",
		Version:       version,
		Timestamp:     base.Add(time.Duration(version) * time.Second),
		Payload:       payload,
	}
}

// Run executes the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	goal := eventlog.StreamID{Type: "goal", ID: "g-1"}

	t.Run("ReadUnknownStreamIsEmpty", func(t *testing.T) {
		s := newStore(t)
		events, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("AppendAndReadInOrder", func(t *testing.T) {
		s := newStore(t)
		for v := 1; v <= 3; v++ {
			res, err := s.Append(ctx, goal, NewTestEvent(goal, v), v-1)
			require.NoError(t, err)
			assert.Equal(t, eventlog.AppendResult{Success: true, Version: v}, res)
		}

		events, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		require.Len(t, events, 3)
		for i, evt := range events {
			assert.Equal(t, i+1, evt.Version)
			assert.Equal(t, NewTestEvent(goal, i+1), evt)
		}
	})

	t.Run("AppendWithWrongExpectedVersionConflicts", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Append(ctx, goal, NewTestEvent(goal, 1), 0)
		require.NoError(t, err)
		_, err = s.Append(ctx, goal, NewTestEvent(goal, 2), 1)
		require.NoError(t, err)
		before, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)

		for _, expected := range []int{0, 1, 3, 7} {
			res, err := s.Append(ctx, goal, NewTestEvent(goal, expected+1), expected)
			require.Error(t, err, "expected version %d", expected)
			assert.True(t, errors.IsVersionConflict(err), "expected conflict, got %v", err)
			assert.False(t, res.Success)
			assert.Equal(t, 2, res.Version)

			vc, ok := errors.Conflict(err)
			require.True(t, ok)
			assert.Equal(t, expected, vc.Expected)
			assert.Equal(t, 2, vc.Actual)
		}

		after, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("AppendRejectsMalformedEvent", func(t *testing.T) {
		s := newStore(t)
		evt := NewTestEvent(goal, 2)
		_, err := s.Append(ctx, goal, evt, 0)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))

		other := eventlog.StreamID{Type: "decision", ID: "g-1"}
		_, err = s.Append(ctx, other, NewTestEvent(goal, 1), 0)
		assert.True(t, errors.IsValidation(err))

		events, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("StreamsAreIsolatedByTypeAndID", func(t *testing.T) {
		s := newStore(t)
		decisionSameID := eventlog.StreamID{Type: "decision", ID: "g-1"}
		g2 := eventlog.StreamID{Type: "goal", ID: "g-2"}

		_, err := s.Append(ctx, goal, NewTestEvent(goal, 1), 0)
		require.NoError(t, err)
		_, err = s.Append(ctx, decisionSameID, NewTestEvent(decisionSameID, 1), 0)
		require.NoError(t, err)
		_, err = s.Append(ctx, g2, NewTestEvent(g2, 1), 0)
		require.NoError(t, err)
		_, err = s.Append(ctx, g2, NewTestEvent(g2, 2), 1)
		require.NoError(t, err)

		streams, err := s.Streams(ctx)
		require.NoError(t, err)
		assert.Equal(t, []eventlog.StreamInfo{
			{Stream: decisionSameID, Head: 1},
			{Stream: goal, Head: 1},
			{Stream: g2, Head: 2},
		}, streams)

		goals, err := eventlog.NewNamespace(s, "goal").Streams(ctx)
		require.NoError(t, err)
		assert.Len(t, goals, 2)
	})

	t.Run("ConcurrentAppendsOneWins", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Append(ctx, goal, NewTestEvent(goal, 1), 0)
		require.NoError(t, err)

		const writers = 8
		var wins, conflicts atomic.Int32
		var g errgroup.Group
		for i := 0; i < writers; i++ {
			g.Go(func() error {
				evt := NewTestEvent(goal, 2)
				evt.ID = fmt.Sprintf("racer-%d", i)
				_, err := s.Append(ctx, goal, evt, 1)
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
		assert.Equal(t, int32(writers-1), conflicts.Load())

		events, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Append(cctx, goal, NewTestEvent(goal, 1), 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		var le *errors.LedgerError
		require.ErrorAs(t, err, &le)
		assert.NotEmpty(t, le.Component)
		assert.Contains(t, errors.UserMessage(err), "cancelled")

		events, err := s.ReadStream(ctx, goal)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("ClosedStoreFails", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		_, err := s.ReadStream(ctx, goal)
		assert.Error(t, err)
	})
}
