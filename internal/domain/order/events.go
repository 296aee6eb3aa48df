package order

import (
	"context"
	"time"
)

// EventType names a lifecycle event. Values double as message routing keys.
type EventType string

const (
	EventCreated       EventType = "order.created"
	EventStatusChanged EventType = "order.status_changed"
)

// Event describes a change to an order.
type Event struct {
	Type       EventType
	Order      *Order
	Previous   Status
	OccurredAt time.Time
}

// Publisher delivers order events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
