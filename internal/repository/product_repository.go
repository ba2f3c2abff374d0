package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/manufacturer-api/internal/model"
)

// ProductRepo encapsulates the product catalog.
type ProductRepo struct{ coll Collection }

func NewProductRepo(s Store) *ProductRepo { return &ProductRepo{coll: s.Collection(CollProducts)} }

// List returns products newest first, truncated to limit when limit > 0.
func (r *ProductRepo) List(ctx context.Context, limit int64) ([]model.Product, error) {
	products := []model.Product{}
	if err := r.coll.Find(ctx, Filter{}, FindOptions{Limit: limit}, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (model.Product, error) {
	f, err := ByID(id)
	if err != nil {
		return model.Product{}, err
	}
	var p model.Product
	if err := r.coll.FindOne(ctx, f, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p model.Product) (InsertResult, error) {
	p.ID = ""
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert product: %w", err)
	}
	return res, nil
}

// SetQuantity overwrites the stock quantity. A missing product is created
// with only the id and quantity, matching the historical upsert.
func (r *ProductRepo) SetQuantity(ctx context.Context, id string, quantity int) (UpdateResult, error) {
	f, err := ByID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	res, err := r.coll.UpdateOne(ctx, f, map[string]any{"quantity": quantity}, true)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update product quantity: %w", err)
	}
	return res, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) (DeleteResult, error) {
	f, err := ByID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := r.coll.DeleteOne(ctx, f)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete product: %w", err)
	}
	return res, nil
}
