// Package pubsub defines the per-session fan-out channel contract: one topic
// per session carrying host-authored state events to every subscriber and
// participant-authored action events back to the host.
//
// Delivery is at-least-once and ordered per publisher. Nothing is replayed to
// late subscribers; clients fetch the authoritative snapshot synchronously
// when they attach.
package pubsub

import (
	"context"
	"encoding/json"
)

// Event is the envelope carried on a session topic.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler consumes events from a subscription. Handlers must be idempotent:
// redelivery of an already-seen event is a no-op by construction.
type Handler func(Event)

// Broker is the transport abstraction behind the fan-out channel. The core
// never retries failed publishes; a late subscriber's snapshot fetch
// self-heals any gap.
type Broker interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler Handler) (cancel func(), err error)
}

// SessionTopic names the fan-out topic for one session.
func SessionTopic(sessionID string) string {
	return "game_session:" + sessionID
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}
