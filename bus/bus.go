// Package bus dispatches committed events to the handlers subscribed to their type.
package bus

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	stdSync "sync"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

const component = "bus"

// ErrSealed is returned by Subscribe once the bus has published an event.
var ErrSealed = stderrors.New("bus: subscriptions are sealed after the first publish")

// Handler reacts to one committed event.
type Handler interface {
	Handle(ctx context.Context, evt eventlog.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, evt eventlog.Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt eventlog.Event) error { return f(ctx, evt) }

type subscription struct {
	name    string
	handler Handler
	types   map[string]struct{}
}

func (s subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// Bus is a synchronous, in-process event bus. Subscriptions are registered during
// wiring; handlers run in registration order.
type Bus struct {
	mu     stdSync.RWMutex
	subs   []subscription
	sealed bool
	logger *logging.Logger
}

// New creates an empty bus. A nil logger uses the default logger.
func New(logger *logging.Logger) *Bus {
	return &Bus{logger: logging.OrDefault(logger).WithComponent(logging.Component(component))}
}

// Subscribe registers handler under name for eventTypes, or for every type when none
// are given.
func (b *Bus) Subscribe(name string, handler Handler, eventTypes ...string) error {
	if name == "" || handler == nil {
		return fmt.Errorf("bus: subscription needs a name and a handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}
	for _, s := range b.subs {
		if s.name == name {
			return fmt.Errorf("bus: handler %q already subscribed", name)
		}
	}

	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	b.subs = append(b.subs, subscription{name: name, handler: handler, types: types})
	return nil
}

// Handlers lists subscription names in registration order.
func (b *Bus) Handlers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.name
	}
	return names
}

// Publish delivers evt to every matching handler. A failing or panicking handler is
// logged and reported as a PROJECTION error without stopping the others; the joined
// failures are returned.
func (b *Bus) Publish(ctx context.Context, evt eventlog.Event) error {
	b.mu.Lock()
	b.sealed = true
	subs := b.subs
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if !s.matches(evt.Type) {
			continue
		}
		if err := b.deliver(ctx, s, evt); err != nil {
			perr := errors.NewProjectionError(s.name, err)
			b.logger.LogWarn(ctx, perr, "event handler failed",
				slog.String("handler", s.name),
				slog.String("event_type", evt.Type),
				slog.String("stream", evt.Stream().String()),
				slog.Int("version", evt.Version),
			)
			errs = append(errs, perr)
		}
	}
	return stderrors.Join(errs...)
}

func (b *Bus) deliver(ctx context.Context, s subscription, evt eventlog.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return s.handler.Handle(ctx, evt)
}
