// Package eventbus carries console events over a Watermill publisher and subscriber.
package eventbus

import (
	"context"

	"github.com/dukex/flowstudio/pkg/events"
)

// Event is any console event; its type selects the handler on the subscriber side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher emits graph, save and share events. key is the flow or
// execution id the event belongs to and keeps its events on one Kafka partition.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches received events to the handler registered for
// their type. Events with no handler are acknowledged and dropped.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, e.g. *events.GraphChanged.
// Returning an error nacks the message so it is delivered again.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
