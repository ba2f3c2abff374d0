// Package queue defines the order events exchanged over RabbitMQ, the
// publisher used by the order lifecycle and the consumer that keeps the
// order log.
package queue

import "time"

// OrderEventsQueue is the durable queue every order event is routed to.
const OrderEventsQueue = "order.events"

// Event types.
const (
	EventOrderCreated   = "order.created"
	EventOrderPending   = "order.pending"
	EventOrderFinalized = "order.finalized"
)

// OrderEvent is published after an order write commits. It carries enough for
// downstream consumers to log or notify without reading the store.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	Email         string    `json:"email,omitempty"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Price         float64   `json:"price,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
