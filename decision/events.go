package decision

import "github.com/c0deZ3R0/go-ledger-kit/eventlog"

// AggregateType is the stream namespace of decisions.
const AggregateType = "decision"

// Event type tags.
const (
	TypeRecorded   = "decision.recorded"
	TypeUpdated    = "decision.updated"
	TypeAccepted   = "decision.accepted"
	TypeSuperseded = "decision.superseded"
	TypeRemoved    = "decision.removed"
)

// Event is the closed set of decision event payloads.
type Event interface {
	eventlog.Payload
	decisionEvent()
}

type Recorded struct {
	Title        string `json:"title"`
	Context      string `json:"context,omitempty"`
	Rationale    string `json:"rationale,omitempty"`
	Consequences string `json:"consequences,omitempty"`
}

// Updated carries only the fields that changed.
type Updated struct {
	Title        *string `json:"title,omitempty"`
	Context      *string `json:"context,omitempty"`
	Rationale    *string `json:"rationale,omitempty"`
	Consequences *string `json:"consequences,omitempty"`
}

type Accepted struct{}

type Superseded struct {
	By string `json:"by"`
}

type Removed struct{}

func (Recorded) EventType() string   { return TypeRecorded }
func (Updated) EventType() string    { return TypeUpdated }
func (Accepted) EventType() string   { return TypeAccepted }
func (Superseded) EventType() string { return TypeSuperseded }
func (Removed) EventType() string    { return TypeRemoved }

func (Recorded) decisionEvent()   {}
func (Updated) decisionEvent()    {}
func (Accepted) decisionEvent()   {}
func (Superseded) decisionEvent() {}
func (Removed) decisionEvent()    {}

var registry = newRegistry()

func newRegistry() *eventlog.Registry {
	r := eventlog.NewRegistry(AggregateType)
	eventlog.Register[Recorded](r)
	eventlog.Register[Updated](r)
	eventlog.Register[Accepted](r)
	eventlog.Register[Superseded](r)
	eventlog.Register[Removed](r)
	return r
}

// Registry returns the payload codec registry for decision events.
func Registry() *eventlog.Registry { return registry }
