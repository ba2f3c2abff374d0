package model

import "time"

// Order statuses set by the lifecycle. Finalized orders carry whatever status
// string an admin supplied, so only these two are named.
const (
	OrderStatusUnpaid  = "unpaid"
	OrderStatusPending = "pending"
)

// Order is owned by the user whose email it carries. Status is empty until a
// payment is submitted; an empty status reads as OrderStatusUnpaid.
type Order struct {
	ID            string      `json:"_id,omitempty" bson:"_id,omitempty"`
	Email         string      `json:"email" bson:"email"`
	Name          string      `json:"name,omitempty" bson:"name,omitempty"`
	Items         []OrderItem `json:"items,omitempty" bson:"items,omitempty"`
	Price         float64     `json:"price" bson:"price"`
	Address       string      `json:"address,omitempty" bson:"address,omitempty"`
	Phone         string      `json:"phone,omitempty" bson:"phone,omitempty"`
	Status        string      `json:"status,omitempty" bson:"status,omitempty"`
	TransactionID string      `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
}

type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name,omitempty" bson:"name,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Price     float64 `json:"price" bson:"price"`
}

// CurrentStatus returns the effective status, treating an unset status as unpaid.
func (o Order) CurrentStatus() string {
	if o.Status == "" {
		return OrderStatusUnpaid
	}
	return o.Status
}
