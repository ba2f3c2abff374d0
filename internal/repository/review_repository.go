package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/manufacturer-api/internal/model"
)

// ReviewRepo stores customer reviews. Reviews are append-only.
type ReviewRepo struct{ coll Collection }

func NewReviewRepo(s Store) *ReviewRepo { return &ReviewRepo{coll: s.Collection(CollReviews)} }

func (r *ReviewRepo) List(ctx context.Context) ([]model.Review, error) {
	reviews := []model.Review{}
	if err := r.coll.Find(ctx, Filter{}, FindOptions{}, &reviews); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (r *ReviewRepo) Create(ctx context.Context, rv model.Review) (InsertResult, error) {
	rv.ID = ""
	rv.Email = NormalizeEmail(rv.Email)
	res, err := r.coll.InsertOne(ctx, rv)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert review: %w", err)
	}
	return res, nil
}
