package goal

import "github.com/c0deZ3R0/go-ledger-kit/eventlog"

// AggregateType is the stream namespace of goals.
const AggregateType = "goal"

// Event type tags.
const (
	TypeAdded     = "goal.added"
	TypeStarted   = "goal.started"
	TypeBlocked   = "goal.blocked"
	TypeUnblocked = "goal.unblocked"
	TypeCompleted = "goal.completed"
	TypeReset     = "goal.reset"
	TypeUpdated   = "goal.updated"
	TypeRemoved   = "goal.removed"
)

// Event is the closed set of goal event payloads.
type Event interface {
	eventlog.Payload
	goalEvent()
}

type Added struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Started struct{}

type Blocked struct {
	Note string `json:"note"`
}

type Unblocked struct{}

type Completed struct{}

// Reset records the prior status so the log explains what was abandoned.
type Reset struct {
	From Status `json:"from"`
}

// Updated carries only the fields that changed.
type Updated struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Removed struct{}

func (Added) EventType() string     { return TypeAdded }
func (Started) EventType() string   { return TypeStarted }
func (Blocked) EventType() string   { return TypeBlocked }
func (Unblocked) EventType() string { return TypeUnblocked }
func (Completed) EventType() string { return TypeCompleted }
func (Reset) EventType() string     { return TypeReset }
func (Updated) EventType() string   { return TypeUpdated }
func (Removed) EventType() string   { return TypeRemoved }

func (Added) goalEvent()     {}
func (Started) goalEvent()   {}
func (Blocked) goalEvent()   {}
func (Unblocked) goalEvent() {}
func (Completed) goalEvent() {}
func (Reset) goalEvent()     {}
func (Updated) goalEvent()   {}
func (Removed) goalEvent()   {}

var registry = newRegistry()

func newRegistry() *eventlog.Registry {
	r := eventlog.NewRegistry(AggregateType)
	eventlog.Register[Added](r)
	eventlog.Register[Started](r)
	eventlog.Register[Blocked](r)
	eventlog.Register[Unblocked](r)
	eventlog.Register[Completed](r)
	eventlog.Register[Reset](r)
	eventlog.Register[Updated](r)
	eventlog.Register[Removed](r)
	return r
}

// Registry returns the payload codec registry for goal events.
func Registry() *eventlog.Registry { return registry }
