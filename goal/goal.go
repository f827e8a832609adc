// Package goal is the goal aggregate: a unit of project work moving between
// to-do, doing, blocked and done.
package goal

import (
	"fmt"

	"github.com/c0deZ3R0/go-ledger-kit/aggregate"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/validation"
)

// Status is the lifecycle position of a goal.
type Status string

const (
	StatusToDo    Status = "to-do"
	StatusDoing   Status = "doing"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
)

// Field limits.
const (
	MaxTitle       = 200
	MaxDescription = 2000
	MaxNote        = 500
)

// State is the folded state of one goal.
type State struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Note        string
	Removed     bool
}

// Command is the closed set of goal commands.
type Command interface {
	goalCommand()
}

type Add struct {
	Title       string
	Description string
}

type Start struct{}

type Block struct {
	Note string
}

type Unblock struct{}

type Complete struct{}

type ResetStatus struct{}

// Update changes the supplied fields only.
type Update struct {
	Title       *string
	Description *string
}

type Remove struct{}

func (Add) goalCommand()         {}
func (Start) goalCommand()       {}
func (Block) goalCommand()       {}
func (Unblock) goalCommand()     {}
func (Complete) goalCommand()    {}
func (ResetStatus) goalCommand() {}
func (Update) goalCommand()      {}
func (Remove) goalCommand()      {}

// Kind implements aggregate.Kind for goals.
type Kind struct{}

var _ aggregate.Kind[State, Command] = Kind{}

func (Kind) Type() string                 { return AggregateType }
func (Kind) Registry() *eventlog.Registry { return registry }
func (Kind) Zero(id string) State         { return State{ID: id} }

// Apply folds one goal event into state.
func (Kind) Apply(s State, payload eventlog.Payload) (State, error) {
	switch e := payload.(type) {
	case Added:
		s.Title = e.Title
		s.Description = e.Description
		s.Status = StatusToDo
	case Started:
		s.Status = StatusDoing
	case Blocked:
		s.Status = StatusBlocked
		s.Note = e.Note
	case Unblocked:
		s.Status = StatusDoing
		s.Note = ""
	case Completed:
		s.Status = StatusDone
		s.Note = ""
	case Reset:
		s.Status = StatusToDo
		s.Note = ""
	case Updated:
		if e.Title != nil {
			s.Title = *e.Title
		}
		if e.Description != nil {
			s.Description = *e.Description
		}
	case Removed:
		s.Removed = true
	default:
		return s, fmt.Errorf("%w: %T", aggregate.ErrUnsupportedEvent, payload)
	}
	return s, nil
}

// Decide validates cmd against the goal and returns the event it produces.
func (Kind) Decide(root aggregate.Root[State], cmd Command) (eventlog.Payload, error) {
	s := root.State
	if add, ok := cmd.(Add); ok {
		if root.Exists() {
			return nil, transition("goal %s already exists", root.ID)
		}
		if err := validation.Check(
			validation.F("title", add.Title, validation.Required(), validation.MaxLength(MaxTitle)),
			validation.F("description", add.Description, validation.MaxLength(MaxDescription)),
		); err != nil {
			return nil, err
		}
		return Added{Title: add.Title, Description: add.Description}, nil
	}

	if !root.Exists() {
		return nil, errors.NewNotFound(errors.OpDecide, "goal "+root.ID)
	}
	if s.Removed {
		return nil, transition("goal %s has been removed", root.ID)
	}

	switch c := cmd.(type) {
	case Start:
		if s.Status != StatusToDo {
			return nil, transition("cannot start goal %s: status is %s", root.ID, s.Status)
		}
		return Started{}, nil
	case Block:
		if s.Status != StatusDoing {
			return nil, transition("cannot block goal %s: status is %s", root.ID, s.Status)
		}
		if err := validation.Check(
			validation.F("note", c.Note, validation.Required(), validation.MaxLength(MaxNote)),
		); err != nil {
			return nil, err
		}
		return Blocked{Note: c.Note}, nil
	case Unblock:
		if s.Status != StatusBlocked {
			return nil, transition("cannot unblock goal %s: status is %s", root.ID, s.Status)
		}
		return Unblocked{}, nil
	case Complete:
		if s.Status != StatusDoing {
			return nil, transition("cannot complete goal %s: status is %s", root.ID, s.Status)
		}
		return Completed{}, nil
	case ResetStatus:
		return Reset{From: s.Status}, nil
	case Update:
		if c.Title == nil && c.Description == nil {
			return nil, validation.Invalid("update needs at least one of title, description")
		}
		var fields []validation.Field
		if c.Title != nil {
			fields = append(fields, validation.F("title", *c.Title, validation.Required(), validation.MaxLength(MaxTitle)))
		}
		if c.Description != nil {
			fields = append(fields, validation.F("description", *c.Description, validation.MaxLength(MaxDescription)))
		}
		if err := validation.Check(fields...); err != nil {
			return nil, err
		}
		return Updated{Title: c.Title, Description: c.Description}, nil
	case Remove:
		return Removed{}, nil
	default:
		return nil, validation.Invalid("unsupported goal command %T", cmd)
	}
}

func transition(format string, args ...any) error {
	return errors.NewInvalidTransition(errors.OpDecide, fmt.Errorf(format, args...))
}
