package model

import "time"

// Payment records a submitted payment. It is written once when an order moves
// to pending and never updated.
type Payment struct {
	ID            string    `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderID       string    `json:"orderId" bson:"orderId"`
	TransactionID string    `json:"transactionId" bson:"transactionId"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	Price         float64   `json:"price,omitempty" bson:"price,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}
