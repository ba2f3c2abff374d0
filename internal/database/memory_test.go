package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

func TestMemoryStore_FindNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(repository.CollProducts)

	for _, name := range []string{"bolt", "nut", "gear"} {
		_, err := c.InsertOne(ctx, model.Product{Name: name, Price: 1})
		require.NoError(t, err)
	}

	var all []model.Product
	require.NoError(t, c.Find(ctx, repository.Filter{}, repository.FindOptions{}, &all))
	require.Len(t, all, 3)
	assert.Equal(t, "gear", all[0].Name)
	assert.Equal(t, "bolt", all[2].Name)

	var limited []model.Product
	require.NoError(t, c.Find(ctx, repository.Filter{}, repository.FindOptions{Limit: 2}, &limited))
	require.Len(t, limited, 2)
	assert.Equal(t, "gear", limited[0].Name)
	assert.Equal(t, "nut", limited[1].Name)
}

func TestMemoryStore_FindOne(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(repository.CollUsers)

	res, err := c.InsertOne(ctx, model.User{Email: "a@x.com", Role: "admin"})
	require.NoError(t, err)
	assert.True(t, repository.ValidID(res.InsertedID))

	var u model.User
	require.NoError(t, c.FindOne(ctx, repository.Filter{"email": "a@x.com"}, &u))
	assert.Equal(t, res.InsertedID, u.ID)
	assert.Equal(t, "admin", u.Role)

	err = c.FindOne(ctx, repository.Filter{"email": "b@x.com"}, &u)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_UpdateOne(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(repository.CollProducts)

	ins, err := c.InsertOne(ctx, model.Product{Name: "gear", Quantity: 5})
	require.NoError(t, err)

	t.Run("Modified", func(t *testing.T) {
		res, err := c.UpdateOne(ctx, repository.Filter{"_id": ins.InsertedID}, map[string]any{"quantity": 9}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(1), res.ModifiedCount)
	})

	t.Run("Unchanged value is not a modification", func(t *testing.T) {
		res, err := c.UpdateOne(ctx, repository.Filter{"_id": ins.InsertedID}, map[string]any{"quantity": 9}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(0), res.ModifiedCount)
	})

	t.Run("Missing without upsert", func(t *testing.T) {
		res, err := c.UpdateOne(ctx, repository.Filter{"_id": repository.NewID()}, map[string]any{"quantity": 1}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.MatchedCount)
		assert.Equal(t, int64(0), res.UpsertedCount)
	})

	t.Run("Upsert keeps filter id", func(t *testing.T) {
		id := repository.NewID()
		res, err := c.UpdateOne(ctx, repository.Filter{"_id": id}, map[string]any{"quantity": 2}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UpsertedCount)
		assert.Equal(t, id, res.UpsertedID)

		var p model.Product
		require.NoError(t, c.FindOne(ctx, repository.Filter{"_id": id}, &p))
		assert.Equal(t, 2, p.Quantity)
	})
}

func TestMemoryStore_DeleteOne(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(repository.CollOrders)

	ins, err := c.InsertOne(ctx, model.Order{Email: "a@x.com"})
	require.NoError(t, err)

	res, err := c.DeleteOne(ctx, repository.Filter{"_id": ins.InsertedID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	res, err = c.DeleteOne(ctx, repository.Filter{"_id": ins.InsertedID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.DeletedCount)
}

func TestMemoryStore_WithTx(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	payments := s.Collection(repository.CollPayments)

	t.Run("Rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(ctx context.Context) error {
			_, err := payments.InsertOne(ctx, model.Payment{TransactionID: "t1"})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var got []model.Payment
		require.NoError(t, payments.Find(ctx, repository.Filter{}, repository.FindOptions{}, &got))
		assert.Empty(t, got)
	})

	t.Run("Commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(ctx context.Context) error {
			_, err := payments.InsertOne(ctx, model.Payment{TransactionID: "t2"})
			return err
		})
		require.NoError(t, err)

		var got []model.Payment
		require.NoError(t, payments.Find(ctx, repository.Filter{"transactionId": "t2"}, repository.FindOptions{}, &got))
		assert.Len(t, got, 1)
	})
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Collection(repository.CollUsers).InsertOne(ctx, model.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
