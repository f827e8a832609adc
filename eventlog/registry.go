package eventlog

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEventType is returned by Decode for a tag the registry does not know.
type ErrUnknownEventType struct {
	AggregateType string
	Type          string
}

func (e *ErrUnknownEventType) Error() string {
	return fmt.Sprintf("unknown %s event type %q", e.AggregateType, e.Type)
}

type decoder func(raw json.RawMessage) (Payload, error)

// Registry maps event type tags of one aggregate kind to payload decoders.
type Registry struct {
	aggregateType string
	mu            sync.RWMutex
	decoders      map[string]decoder
}

// NewRegistry creates an empty registry for aggregateType.
func NewRegistry(aggregateType string) *Registry {
	return &Registry{aggregateType: aggregateType, decoders: map[string]decoder{}}
}

// Register adds payload type T to r under T's event type tag.
func Register[T Payload](r *Registry) {
	var zero T
	tag := zero.EventType()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.decoders[tag]; dup {
		panic(fmt.Sprintf("eventlog: event type %q registered twice", tag))
	}
	r.decoders[tag] = func(raw json.RawMessage) (Payload, error) {
		var p T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
}

// AggregateType returns the aggregate kind this registry decodes.
func (r *Registry) AggregateType() string {
	return r.aggregateType
}

// Types lists the registered tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Knows reports whether tag is registered.
func (r *Registry) Knows(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[tag]
	return ok
}

// Decode parses the payload of evt into its registered type.
func (r *Registry) Decode(evt Event) (Payload, error) {
	r.mu.RLock()
	dec, ok := r.decoders[evt.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownEventType{AggregateType: r.aggregateType, Type: evt.Type}
	}
	p, err := dec(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload of event %s: %w", evt.Type, evt.ID, err)
	}
	return p, nil
}
