package decision

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/aggregate"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type run struct {
	t      *testing.T
	root   aggregate.Root[State]
	events []eventlog.Event
}

func newRun(t *testing.T, id string) *run {
	return &run{t: t, root: aggregate.Create[State, Command](Kind{}, id)}
}

func (r *run) do(cmd Command) {
	r.t.Helper()
	require.NoError(r.t, r.try(cmd))
}

func (r *run) try(cmd Command) error {
	n := len(r.events) + 1
	meta := eventlog.Meta{
		EventID:   fmt.Sprintf("%s-evt-%d", r.root.ID, n),
		Timestamp: time.Date(2026, 3, 1, 9, n, 0, 0, time.UTC),
	}
	next, evt, err := aggregate.Decide[State, Command](Kind{}, r.root, cmd, meta)
	if err != nil {
		return err
	}
	r.root = next
	r.events = append(r.events, evt)
	return nil
}

func ptr(s string) *string { return &s }

func TestPartialUpdateChangesOnlyTitle(t *testing.T) {
	r := newRun(t, "d-1")
	r.do(Record{Title: "Use SQLite", Context: "local tool", Rationale: "zero ops", Consequences: "single writer"})
	before := r.root

	r.do(Update{Title: ptr("Use SQLite for storage")})

	assert.Equal(t, before.Version+1, r.root.Version)
	assert.Equal(t, "Use SQLite for storage", r.root.State.Title)
	assert.Equal(t, before.State.Context, r.root.State.Context)
	assert.Equal(t, before.State.Rationale, r.root.State.Rationale)
	assert.Equal(t, before.State.Consequences, r.root.State.Consequences)
	assert.Equal(t, StatusProposed, r.root.State.Status)

	assert.JSONEq(t, `{"title":"Use SQLite for storage"}`, string(r.events[1].Payload))
}

func TestLifecycleAndRehydrate(t *testing.T) {
	r := newRun(t, "d-2")
	r.do(Record{Title: "Adopt event sourcing"})
	r.do(Update{Rationale: ptr("audit trail"), Consequences: ptr("rebuilds")})
	r.do(Accept{})
	r.do(Supersede{By: "d-3"})
	r.do(Update{Context: ptr("revisited")})
	r.do(Remove{})

	assert.Equal(t, StatusSuperseded, r.root.State.Status)
	assert.Equal(t, "d-3", r.root.State.SupersededBy)

	rehydrated, err := aggregate.Rehydrate[State, Command](Kind{}, "d-2", r.events)
	require.NoError(t, err)
	assert.Equal(t, r.root, rehydrated)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []Command
		cmd   Command
	}{
		{"accept twice", []Command{Accept{}}, Accept{}},
		{"supersede proposed", nil, Supersede{By: "d-9"}},
		{"accept superseded", []Command{Accept{}, Supersede{By: "d-9"}}, Accept{}},
		{"record twice", nil, Record{Title: "again"}},
		{"accept removed", []Command{Remove{}}, Accept{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRun(t, "d-t")
			r.do(Record{Title: "Decision"})
			for _, c := range tt.setup {
				r.do(c)
			}
			err := r.try(tt.cmd)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidTransition(err), "got %v", err)
		})
	}
}

func TestValidation(t *testing.T) {
	long := strings.Repeat("x", MaxText+1)
	tests := []struct {
		name  string
		setup []Command
		cmd   Command
		field string
	}{
		{"missing title", nil, Record{}, "title"},
		{"long title", nil, Record{Title: strings.Repeat("t", MaxTitle+1)}, "title"},
		{"long rationale", nil, Record{Title: "ok", Rationale: long}, "rationale"},
		{"empty update", []Command{Record{Title: "ok"}}, Update{}, "at least one"},
		{"long consequences update", []Command{Record{Title: "ok"}}, Update{Consequences: &long}, "consequences"},
		{"supersede without successor", []Command{Record{Title: "ok"}, Accept{}}, Supersede{}, "by"},
		{"supersede by itself", []Command{Record{Title: "ok"}, Accept{}}, Supersede{By: "d-v"}, "itself"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRun(t, "d-v")
			for _, c := range tt.setup {
				r.do(c)
			}
			err := r.try(tt.cmd)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
