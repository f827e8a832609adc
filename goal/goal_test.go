package goal

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

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

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
		Timestamp: base.Add(time.Duration(n) * time.Minute),
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

func TestStatusScenario(t *testing.T) {
	r := newRun(t, "g-1")
	r.do(Add{Title: "Ship v1"})
	assert.Equal(t, StatusToDo, r.root.State.Status)

	r.do(Start{})
	assert.Equal(t, StatusDoing, r.root.State.Status)

	r.do(Block{Note: "waiting on review"})
	assert.Equal(t, StatusBlocked, r.root.State.Status)
	assert.Equal(t, "waiting on review", r.root.State.Note)

	r.do(Unblock{})
	assert.Equal(t, StatusDoing, r.root.State.Status)
	assert.Empty(t, r.root.State.Note)

	r.do(ResetStatus{})
	assert.Equal(t, StatusToDo, r.root.State.Status)
	assert.Equal(t, 5, r.root.Version)

	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	assert.Equal(t, []string{TypeAdded, TypeStarted, TypeBlocked, TypeUnblocked, TypeReset}, types)
}

func TestRehydrateMatchesSequentialDecide(t *testing.T) {
	r := newRun(t, "g-2")
	r.do(Add{Title: "Write docs", Description: "user guide"})
	r.do(Update{Title: ptr("Write the docs")})
	r.do(Start{})
	r.do(Block{Note: "blocked on CI"})
	r.do(Unblock{})
	r.do(Complete{})
	r.do(ResetStatus{})
	r.do(Update{Description: ptr("")})
	r.do(Remove{})

	rehydrated, err := aggregate.Rehydrate[State, Command](Kind{}, "g-2", r.events)
	require.NoError(t, err)
	assert.Equal(t, r.root, rehydrated)
	assert.True(t, rehydrated.State.Removed)
	assert.Equal(t, "Write the docs", rehydrated.State.Title)
	assert.Empty(t, rehydrated.State.Description)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []Command
		cmd   Command
	}{
		{"start twice", []Command{Start{}}, Start{}},
		{"block from to-do", nil, Block{Note: "x"}},
		{"unblock while doing", []Command{Start{}}, Unblock{}},
		{"complete from to-do", nil, Complete{}},
		{"complete while blocked", []Command{Start{}, Block{Note: "x"}}, Complete{}},
		{"start after done", []Command{Start{}, Complete{}}, Start{}},
		{"add twice", nil, Add{Title: "again"}},
		{"start removed", []Command{Remove{}}, Start{}},
		{"update removed", []Command{Remove{}}, Update{Title: ptr("x")}},
		{"remove removed", []Command{Remove{}}, Remove{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRun(t, "g-t")
			r.do(Add{Title: "Goal"})
			for _, c := range tt.setup {
				r.do(c)
			}
			before := r.root
			err := r.try(tt.cmd)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidTransition(err), "got %v", err)
			assert.Equal(t, before, r.root)
		})
	}
}

func TestResetIsAllowedFromAnyStatus(t *testing.T) {
	for _, setup := range [][]Command{nil, {Start{}}, {Start{}, Block{Note: "x"}}, {Start{}, Complete{}}} {
		r := newRun(t, "g-r")
		r.do(Add{Title: "Goal"})
		for _, c := range setup {
			r.do(c)
		}
		r.do(ResetStatus{})
		assert.Equal(t, StatusToDo, r.root.State.Status)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup []Command
		cmd   Command
		field string
	}{
		{"empty title", nil, Add{Title: "  "}, "title"},
		{"long title", nil, Add{Title: strings.Repeat("t", MaxTitle+1)}, "title"},
		{"long description", nil, Add{Title: "ok", Description: strings.Repeat("d", MaxDescription+1)}, "description"},
		{"block without note", []Command{Add{Title: "ok"}, Start{}}, Block{}, "note"},
		{"long note", []Command{Add{Title: "ok"}, Start{}}, Block{Note: strings.Repeat("n", MaxNote+1)}, "note"},
		{"empty update", []Command{Add{Title: "ok"}}, Update{}, "at least one"},
		{"update clears title", []Command{Add{Title: "ok"}}, Update{Title: ptr("")}, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRun(t, "g-v")
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

func TestCommandsOnMissingGoal(t *testing.T) {
	r := newRun(t, "g-missing")
	err := r.try(Start{})
	assert.True(t, errors.IsNotFound(err))
}

func TestMaxLengthCountsCharacters(t *testing.T) {
	r := newRun(t, "g-u")
	r.do(Add{Title: strings.Repeat("é", MaxTitle)})
	assert.Equal(t, 1, r.root.Version)
}

func TestRegistryKnowsEveryEvent(t *testing.T) {
	assert.Equal(t, []string{
		TypeAdded, TypeBlocked, TypeCompleted, TypeRemoved,
		TypeReset, TypeStarted, TypeUnblocked, TypeUpdated,
	}, Registry().Types())
}
