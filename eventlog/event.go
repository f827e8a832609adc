// Package eventlog defines the append-only event log: the event record, the store
// contract with optimistic concurrency, and the payload codec registry.
package eventlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the tag-specific body of an event. Each aggregate kind defines a closed
// set of payload types.
type Payload interface {
	EventType() string
}

// Event is an immutable fact recorded in one stream.
type Event struct {
	ID            string          `json:"eventId"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// Stream returns the id of the stream the event belongs to.
func (e Event) Stream() StreamID {
	return StreamID{Type: e.AggregateType, ID: e.AggregateID}
}

// StreamID identifies one aggregate's stream.
type StreamID struct {
	Type string
	ID   string
}

func (s StreamID) String() string {
	return s.Type + "/" + s.ID
}

// Meta carries the values of a new event that must come from outside the aggregate.
type Meta struct {
	EventID   string
	Timestamp time.Time
}

// NewEvent encodes payload into a new event at version for the given stream.
func NewEvent(stream StreamID, version int, meta Meta, payload Payload) (Event, error) {
	if payload == nil {
		return Event{}, fmt.Errorf("payload is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", payload.EventType(), err)
	}
	return Event{
		ID:            meta.EventID,
		AggregateID:   stream.ID,
		AggregateType: stream.Type,
		Type:          payload.EventType(),
		Version:       version,
		Timestamp:     meta.Timestamp.UTC().Round(0),
		Payload:       raw,
	}, nil
}

// Marshal encodes the event record to its JSON wire form.
func Marshal(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}

// Unmarshal parses an event record from its JSON wire form.
func Unmarshal(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	evt.Timestamp = evt.Timestamp.UTC()
	return evt, nil
}
