package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/manufacturer-api/internal/model"
)

// UserRepo stores users keyed by normalized email.
type UserRepo struct{ coll Collection }

func NewUserRepo(s Store) *UserRepo { return &UserRepo{coll: s.Collection(CollUsers)} }

// Upsert sets fields on the user with the given email, creating it when absent.
func (r *UserRepo) Upsert(ctx context.Context, email string, set map[string]any) (UpdateResult, error) {
	return r.update(ctx, email, set, true)
}

// Update sets fields on an existing user. A missing user yields a zero match
// count, not an error.
func (r *UserRepo) Update(ctx context.Context, email string, set map[string]any) (UpdateResult, error) {
	return r.update(ctx, email, set, false)
}

func (r *UserRepo) update(ctx context.Context, email string, set map[string]any, upsert bool) (UpdateResult, error) {
	email = NormalizeEmail(email)
	fields := make(map[string]any, len(set)+1)
	for k, v := range set {
		fields[k] = v
	}
	fields["email"] = email
	res, err := r.coll.UpdateOne(ctx, Filter{"email": email}, fields, upsert)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update user %s: %w", email, err)
	}
	return res, nil
}

// SetRole changes a user's role. It returns ErrNotFound when no user matches.
func (r *UserRepo) SetRole(ctx context.Context, email, role string) (UpdateResult, error) {
	res, err := r.Update(ctx, email, map[string]any{"role": role})
	if err != nil {
		return res, err
	}
	if res.MatchedCount == 0 {
		return res, ErrNotFound
	}
	return res, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, Filter{"email": NormalizeEmail(email)}, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.coll.Find(ctx, Filter{}, FindOptions{}, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Delete(ctx context.Context, email string) (DeleteResult, error) {
	res, err := r.coll.DeleteOne(ctx, Filter{"email": NormalizeEmail(email)})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete user: %w", err)
	}
	return res, nil
}
