// Package repository contains data access logic separated from HTTP handlers.
// Repositories are built on top of Store, a small document-store abstraction
// implemented by the backends in package database.
package repository

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	CollUsers    = "users"
	CollProducts = "products"
	CollReviews  = "reviews"
	CollOrders   = "orders"
	CollPayments = "payments"
)

// IDField is the document id field name in every backend.
const IDField = "_id"

// Filter is an equality match on top-level document fields. The "_id" key
// matches the document id.
type Filter map[string]any

// FindOptions tune a Find call. Results are always newest first.
type FindOptions struct {
	Limit int64 // 0 means no limit
}

// InsertResult mirrors the shape document drivers report for inserts.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult mirrors the shape document drivers report for updates.
type UpdateResult struct {
	Acknowledged  bool   `json:"acknowledged"`
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedCount int64  `json:"upsertedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}

// DeleteResult mirrors the shape document drivers report for deletes.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Collection is a named set of schema-flexible documents.
type Collection interface {
	// FindOne decodes the first match into out or returns ErrNotFound.
	FindOne(ctx context.Context, f Filter, out any) error
	// Find decodes all matches, newest first, into out (a pointer to a slice).
	Find(ctx context.Context, f Filter, opts FindOptions, out any) error
	InsertOne(ctx context.Context, doc any) (InsertResult, error)
	// UpdateOne sets the given top-level fields on the first match. With
	// upsert, a missing document is created from the filter and the set.
	UpdateOne(ctx context.Context, f Filter, set map[string]any, upsert bool) (UpdateResult, error)
	DeleteOne(ctx context.Context, f Filter) (DeleteResult, error)
}

// Store hands out collections and runs transactional units.
type Store interface {
	Collection(name string) Collection
	// WithTx runs fn so that every collection call made with the context it
	// receives commits or rolls back together.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh 24-hex-digit document id.
func NewID() string { return primitive.NewObjectID().Hex() }

// ValidID reports whether id has the document id format.
func ValidID(id string) bool { return primitive.IsValidObjectID(id) }

// ByID builds an id filter, rejecting malformed ids with ErrInvalidID.
func ByID(id string) (Filter, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	return Filter{IDField: id}, nil
}

// NormalizeEmail trims and lower-cases an email used as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
