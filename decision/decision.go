// Package decision is the decision record aggregate: a design decision that is
// proposed, accepted and eventually superseded by a later one.
package decision

import (
	"fmt"

	"github.com/c0deZ3R0/go-ledger-kit/aggregate"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/validation"
)

// Status is the lifecycle position of a decision.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusSuperseded Status = "superseded"
)

// Field limits.
const (
	MaxTitle = 200
	MaxText  = 5000
)

// State is the folded state of one decision.
type State struct {
	ID           string
	Title        string
	Context      string
	Rationale    string
	Consequences string
	Status       Status
	SupersededBy string
	Removed      bool
}

// Command is the closed set of decision commands.
type Command interface {
	decisionCommand()
}

type Record struct {
	Title        string
	Context      string
	Rationale    string
	Consequences string
}

// Update changes the supplied fields only.
type Update struct {
	Title        *string
	Context      *string
	Rationale    *string
	Consequences *string
}

type Accept struct{}

type Supersede struct {
	By string
}

type Remove struct{}

func (Record) decisionCommand()    {}
func (Update) decisionCommand()    {}
func (Accept) decisionCommand()    {}
func (Supersede) decisionCommand() {}
func (Remove) decisionCommand()    {}

// Kind implements aggregate.Kind for decisions.
type Kind struct{}

var _ aggregate.Kind[State, Command] = Kind{}

func (Kind) Type() string                 { return AggregateType }
func (Kind) Registry() *eventlog.Registry { return registry }
func (Kind) Zero(id string) State         { return State{ID: id} }

// Apply folds one decision event into state.
func (Kind) Apply(s State, payload eventlog.Payload) (State, error) {
	switch e := payload.(type) {
	case Recorded:
		s.Title = e.Title
		s.Context = e.Context
		s.Rationale = e.Rationale
		s.Consequences = e.Consequences
		s.Status = StatusProposed
	case Updated:
		setIf(&s.Title, e.Title)
		setIf(&s.Context, e.Context)
		setIf(&s.Rationale, e.Rationale)
		setIf(&s.Consequences, e.Consequences)
	case Accepted:
		s.Status = StatusAccepted
	case Superseded:
		s.Status = StatusSuperseded
		s.SupersededBy = e.By
	case Removed:
		s.Removed = true
	default:
		return s, fmt.Errorf("%w: %T", aggregate.ErrUnsupportedEvent, payload)
	}
	return s, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Decide validates cmd against the decision and returns the event it produces.
func (Kind) Decide(root aggregate.Root[State], cmd Command) (eventlog.Payload, error) {
	s := root.State
	if rec, ok := cmd.(Record); ok {
		if root.Exists() {
			return nil, transition("decision %s already exists", root.ID)
		}
		if err := validation.Check(
			validation.F("title", rec.Title, validation.Required(), validation.MaxLength(MaxTitle)),
			validation.F("context", rec.Context, validation.MaxLength(MaxText)),
			validation.F("rationale", rec.Rationale, validation.MaxLength(MaxText)),
			validation.F("consequences", rec.Consequences, validation.MaxLength(MaxText)),
		); err != nil {
			return nil, err
		}
		return Recorded{
			Title:        rec.Title,
			Context:      rec.Context,
			Rationale:    rec.Rationale,
			Consequences: rec.Consequences,
		}, nil
	}

	if !root.Exists() {
		return nil, errors.NewNotFound(errors.OpDecide, "decision "+root.ID)
	}
	if s.Removed {
		return nil, transition("decision %s has been removed", root.ID)
	}

	switch c := cmd.(type) {
	case Update:
		if c.Title == nil && c.Context == nil && c.Rationale == nil && c.Consequences == nil {
			return nil, validation.Invalid("update needs at least one of title, context, rationale, consequences")
		}
		var fields []validation.Field
		if c.Title != nil {
			fields = append(fields, validation.F("title", *c.Title, validation.Required(), validation.MaxLength(MaxTitle)))
		}
		texts := []struct {
			name  string
			value *string
		}{{"context", c.Context}, {"rationale", c.Rationale}, {"consequences", c.Consequences}}
		for _, t := range texts {
			if t.value != nil {
				fields = append(fields, validation.F(t.name, *t.value, validation.MaxLength(MaxText)))
			}
		}
		if err := validation.Check(fields...); err != nil {
			return nil, err
		}
		return Updated{
			Title:        c.Title,
			Context:      c.Context,
			Rationale:    c.Rationale,
			Consequences: c.Consequences,
		}, nil
	case Accept:
		if s.Status != StatusProposed {
			return nil, transition("cannot accept decision %s: status is %s", root.ID, s.Status)
		}
		return Accepted{}, nil
	case Supersede:
		if s.Status != StatusAccepted {
			return nil, transition("cannot supersede decision %s: status is %s", root.ID, s.Status)
		}
		if err := validation.Check(validation.F("by", c.By, validation.Required())); err != nil {
			return nil, err
		}
		if c.By == root.ID {
			return nil, validation.Invalid("decision %s cannot supersede itself", root.ID)
		}
		return Superseded{By: c.By}, nil
	case Remove:
		return Removed{}, nil
	default:
		return nil, validation.Invalid("unsupported decision command %T", cmd)
	}
}

func transition(format string, args ...any) error {
	return errors.NewInvalidTransition(errors.OpDecide, fmt.Errorf(format, args...))
}
