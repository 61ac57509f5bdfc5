// Package events publishes order lifecycle notifications to downstream
// consumers (kitchen displays, notification workers, analytics).
package events

import (
	"context"
	"time"
)

type Type string

const (
	OrderCreated        Type = "order.created"
	OrderStatusChanged  Type = "order.status_changed"
	OrderCancelled      Type = "order.cancelled"
	OrderPaymentChanged Type = "order.payment_changed"
)

// Event is the JSON payload written for every committed order change.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	TotalAmount   string    `json:"total_amount,omitempty"`
	OrderType     string    `json:"order_type,omitempty"`
	EstimatedTime time.Time `json:"estimated_ready_at,omitzero"`
	OccurredAt    time.Time `json:"occurred_at"`
}

//go:generate mockgen -destination=mock_publisher.go -package=events restaurant-api/events Publisher

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
