package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/manufacturer-api/internal/model"
)

// OrderRepo encapsulates order persistence. Status transitions live in the
// order lifecycle service; this type only issues the writes.
type OrderRepo struct{ coll Collection }

func NewOrderRepo(s Store) *OrderRepo { return &OrderRepo{coll: s.Collection(CollOrders)} }

// List returns orders newest first, restricted to one owner when email is set.
func (r *OrderRepo) List(ctx context.Context, email string) ([]model.Order, error) {
	f := Filter{}
	if email != "" {
		f["email"] = NormalizeEmail(email)
	}
	orders := []model.Order{}
	if err := r.coll.Find(ctx, f, FindOptions{}, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (model.Order, error) {
	f, err := ByID(id)
	if err != nil {
		return model.Order{}, err
	}
	var o model.Order
	if err := r.coll.FindOne(ctx, f, &o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o model.Order) (InsertResult, error) {
	o.ID = ""
	o.Email = NormalizeEmail(o.Email)
	res, err := r.coll.InsertOne(ctx, o)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert order: %w", err)
	}
	return res, nil
}

// MarkPending sets the pending status and the payment transaction id.
func (r *OrderRepo) MarkPending(ctx context.Context, id, transactionID string) (UpdateResult, error) {
	return r.set(ctx, id, map[string]any{
		"status":        model.OrderStatusPending,
		"transactionId": transactionID,
	})
}

// SetStatus overwrites the status with any value.
func (r *OrderRepo) SetStatus(ctx context.Context, id, status string) (UpdateResult, error) {
	return r.set(ctx, id, map[string]any{"status": status})
}

func (r *OrderRepo) set(ctx context.Context, id string, fields map[string]any) (UpdateResult, error) {
	f, err := ByID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	res, err := r.coll.UpdateOne(ctx, f, fields, false)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update order %s: %w", id, err)
	}
	return res, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) (DeleteResult, error) {
	f, err := ByID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := r.coll.DeleteOne(ctx, f)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete order: %w", err)
	}
	return res, nil
}
