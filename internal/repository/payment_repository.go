package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/manufacturer-api/internal/model"
)

// PaymentRepo is insert-only: payments are immutable once recorded.
type PaymentRepo struct{ coll Collection }

func NewPaymentRepo(s Store) *PaymentRepo { return &PaymentRepo{coll: s.Collection(CollPayments)} }

func (r *PaymentRepo) Create(ctx context.Context, p model.Payment) (InsertResult, error) {
	p.ID = ""
	p.Email = NormalizeEmail(p.Email)
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert payment: %w", err)
	}
	return res, nil
}

// ListByTransaction returns payments recorded with the transaction id.
func (r *PaymentRepo) ListByTransaction(ctx context.Context, transactionID string) ([]model.Payment, error) {
	return r.list(ctx, Filter{"transactionId": transactionID})
}

// ListByOrder returns payments recorded against the order, newest first.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	return r.list(ctx, Filter{"orderId": orderID})
}

func (r *PaymentRepo) list(ctx context.Context, f Filter) ([]model.Payment, error) {
	payments := []model.Payment{}
	if err := r.coll.Find(ctx, f, FindOptions{}, &payments); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
