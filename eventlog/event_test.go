package eventlog_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog/memory"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

type noted struct {
	Note string   `json:"note"`
	Tags []string `json:"tags,omitempty"`
}

func (noted) EventType() string { return "test.noted" }

type cleared struct{}

func (cleared) EventType() string { return "test.cleared" }

var when = time.Date(2026, 5, 6, 7, 8, 9, 10, time.UTC)

func TestRoundTripPreservesPayload(t *testing.T) {
	reg := eventlog.NewRegistry("test")
	eventlog.Register[noted](reg)

	stream := eventlog.StreamID{Type: "test", ID: "t-1"}
	in := noted{Note: "blocked on review", Tags: []string{"a", "b"}}
	evt, err := eventlog.NewEvent(stream, 1, eventlog.Meta{EventID: "e-1", Timestamp: when}, in)
	require.NoError(t, err)

	data, err := eventlog.Marshal(evt)
	require.NoError(t, err)
	back, err := eventlog.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, evt, back)

	p, err := reg.Decode(back)
	require.NoError(t, err)
	assert.Equal(t, in, p)
}

func TestWireFormatFieldNames(t *testing.T) {
	evt, err := eventlog.NewEvent(eventlog.StreamID{Type: "test", ID: "t-1"}, 1,
		eventlog.Meta{EventID: "e-1", Timestamp: when}, cleared{})
	require.NoError(t, err)
	data, err := eventlog.Marshal(evt)
	require.NoError(t, err)
	for _, field := range []string{`"eventId"`, `"aggregateId"`, `"aggregateType"`, `"type"`, `"version"`, `"timestamp":"2026-05-06T07:08:09.00000001Z"`, `"payload"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestRegistry(t *testing.T) {
	reg := eventlog.NewRegistry("test")
	eventlog.Register[noted](reg)
	eventlog.Register[cleared](reg)

	assert.Equal(t, []string{"test.cleared", "test.noted"}, reg.Types())
	assert.True(t, reg.Knows("test.noted"))
	assert.Equal(t, "test", reg.AggregateType())

	_, err := reg.Decode(eventlog.Event{Type: "test.exploded"})
	var unknown *eventlog.ErrUnknownEventType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "test.exploded", unknown.Type)

	_, err = reg.Decode(eventlog.Event{Type: "test.noted", Payload: []byte(`{"note":`)})
	assert.Error(t, err)

	assert.Panics(t, func() { eventlog.Register[noted](reg) })
}

func TestValidateAppend(t *testing.T) {
	stream := eventlog.StreamID{Type: "test", ID: "t-1"}
	good, err := eventlog.NewEvent(stream, 3, eventlog.Meta{EventID: "e-3", Timestamp: when}, cleared{})
	require.NoError(t, err)
	assert.NoError(t, eventlog.ValidateAppend(stream, good, 2))

	bad := good
	bad.ID = ""
	assert.True(t, errors.IsValidation(eventlog.ValidateAppend(stream, bad, 2)))
	assert.True(t, errors.IsValidation(eventlog.ValidateAppend(stream, good, 3)))
	assert.True(t, errors.IsValidation(eventlog.ValidateAppend(eventlog.StreamID{Type: "test", ID: "t-2"}, good, 2)))
	assert.True(t, errors.IsValidation(eventlog.ValidateAppend(stream, good, -1)))
}

func TestNamespaceAndLoggingDecorator(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	store := eventlog.WithLogging(memory.New(), logging.NewLoggerTo(&buf, logging.Config{Level: "debug"}))
	ns := eventlog.NewNamespace(store, "test")
	assert.Equal(t, "test", ns.Type())

	evt, err := eventlog.NewEvent(ns.Stream("t-1"), 1, eventlog.Meta{EventID: "e-1", Timestamp: when}, cleared{})
	require.NoError(t, err)
	res, err := ns.Append(ctx, evt, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)

	_, err = ns.Append(ctx, evt, 0)
	assert.True(t, errors.IsVersionConflict(err))

	events, err := ns.ReadStream(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	out := buf.String()
	assert.Contains(t, out, "event appended")
	assert.Contains(t, out, "append rejected by version check")
	assert.Contains(t, out, "stream read")
}

func TestSequence(t *testing.T) {
	next := eventlog.Sequence("goal")
	assert.Equal(t, "goal-1", next())
	assert.Equal(t, "goal-2", next())
	assert.NotEqual(t, eventlog.NewID(), eventlog.NewID())
}
