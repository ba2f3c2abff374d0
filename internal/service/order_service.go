// Package service holds the business flows that span more than one
// repository call: the order lifecycle and payment intent creation.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/metrics"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/queue"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// EventPublisher sends order events. queue.Publisher and queue.NopPublisher
// implement it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}

// OrderLifecycle drives orders from creation through payment submission to
// an admin decision. Every transition overwrites unconditionally; none of
// them checks the prior status.
type OrderLifecycle struct {
	store    repository.Store
	orders   *repository.OrderRepo
	payments *repository.PaymentRepo
	events   EventPublisher
	now      func() time.Time
}

func NewOrderLifecycle(store repository.Store, events EventPublisher) *OrderLifecycle {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &OrderLifecycle{
		store:    store,
		orders:   repository.NewOrderRepo(store),
		payments: repository.NewPaymentRepo(store),
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new order. Its status stays unset, which reads as unpaid.
func (s *OrderLifecycle) Create(ctx context.Context, o model.Order) (repository.InsertResult, error) {
	o.Status = ""
	o.TransactionID = ""
	o.CreatedAt = s.now()
	res, err := s.orders.Create(ctx, o)
	if err != nil {
		return res, err
	}
	metrics.OrderTransitions.WithLabelValues(model.OrderStatusUnpaid).Inc()
	s.publish(ctx, queue.OrderEvent{
		Type:    queue.EventOrderCreated,
		OrderID: res.InsertedID,
		Email:   repository.NormalizeEmail(o.Email),
		Status:  model.OrderStatusUnpaid,
		Price:   o.Price,
	})
	return res, nil
}

// SubmitPayment records p against the order and moves the order to pending
// in one transaction. A missing order rolls the payment back and yields
// repository.ErrNotFound. The returned map is the update that was applied.
func (s *OrderLifecycle) SubmitPayment(ctx context.Context, orderID string, p model.Payment) (map[string]any, error) {
	if !repository.ValidID(orderID) {
		return nil, repository.ErrInvalidID
	}
	p.OrderID = orderID
	p.CreatedAt = s.now()

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		res, err := s.orders.MarkPending(ctx, orderID, p.TransactionID)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit payment for order %s: %w", orderID, err)
	}

	metrics.OrderTransitions.WithLabelValues(model.OrderStatusPending).Inc()
	s.publish(ctx, queue.OrderEvent{
		Type:          queue.EventOrderPending,
		OrderID:       orderID,
		Email:         repository.NormalizeEmail(p.Email),
		Status:        model.OrderStatusPending,
		TransactionID: p.TransactionID,
		Price:         p.Price,
	})
	return map[string]any{
		"status":        model.OrderStatusPending,
		"transactionId": p.TransactionID,
	}, nil
}

// Finalize sets the admin's decision. Any non-blank status is accepted and
// stored exactly as supplied.
func (s *OrderLifecycle) Finalize(ctx context.Context, orderID, status string) (repository.UpdateResult, error) {
	if strings.TrimSpace(status) == "" {
		return repository.UpdateResult{}, ErrInvalidStatus
	}
	res, err := s.orders.SetStatus(ctx, orderID, status)
	if err != nil {
		return res, err
	}
	if res.MatchedCount == 0 {
		return res, repository.ErrNotFound
	}

	metrics.OrderTransitions.WithLabelValues("finalized").Inc()
	s.publish(ctx, queue.OrderEvent{
		Type:    queue.EventOrderFinalized,
		OrderID: orderID,
		Status:  status,
	})
	return res, nil
}

// publish never fails the request; the write has already committed.
func (s *OrderLifecycle) publish(ctx context.Context, ev queue.OrderEvent) {
	ev.OccurredAt = s.now()
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.FromCtx(ctx).Warn("order event not published",
			zap.String("event", ev.Type), zap.String("order_id", ev.OrderID), zap.Error(err))
	}
}
