package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

func TestMySQLStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCollection_InsertOne(t *testing.T) {
	s, mock := newMockStore(t)
	c := s.Collection(repository.CollProducts)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)")).
		WithArgs(repository.CollProducts, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := c.InsertOne(context.Background(), model.Product{Name: "gear", Price: 4})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.True(t, repository.ValidID(res.InsertedID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCollection_FindOne(t *testing.T) {
	query := regexp.QuoteMeta("SELECT body FROM documents WHERE collection = ? AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ? ORDER BY seq ASC LIMIT 1")

	t.Run("Found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(query).
			WithArgs(repository.CollUsers, `$."email"`, "a@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).
				AddRow([]byte(`{"_id":"64b7f0c2a1b2c3d4e5f60718","email":"a@x.com","role":"admin"}`)))

		var u model.User
		require.NoError(t, s.Collection(repository.CollUsers).FindOne(context.Background(), repository.Filter{"email": "a@x.com"}, &u))
		assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", u.ID)
		assert.True(t, u.IsAdmin())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(query).
			WithArgs(repository.CollUsers, `$."email"`, "b@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"body"}))

		var u model.User
		err := s.Collection(repository.CollUsers).FindOne(context.Background(), repository.Filter{"email": "b@x.com"}, &u)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMySQLCollection_Find(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM documents WHERE collection = ? ORDER BY seq DESC LIMIT ?")).
		WithArgs(repository.CollProducts, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"_id":"64b7f0c2a1b2c3d4e5f60719","name":"gear","price":3,"quantity":1}`)).
			AddRow([]byte(`{"_id":"64b7f0c2a1b2c3d4e5f60718","name":"bolt","price":1,"quantity":9}`)))

	var products []model.Product
	err := s.Collection(repository.CollProducts).Find(context.Background(), repository.Filter{}, repository.FindOptions{Limit: 2}, &products)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "gear", products[0].Name)
	assert.Equal(t, 9, products[1].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCollection_UpdateOne(t *testing.T) {
	const id = "64b7f0c2a1b2c3d4e5f60718"
	selectQ := regexp.QuoteMeta("SELECT id, body FROM documents WHERE collection = ? AND id = ? ORDER BY seq ASC LIMIT 1 FOR UPDATE")

	t.Run("Modified", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).
			WithArgs(repository.CollOrders, id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
				AddRow(id, []byte(`{"_id":"`+id+`","email":"a@x.com","price":20}`)))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET body = ? WHERE collection = ? AND id = ?")).
			WithArgs(sqlmock.AnyArg(), repository.CollOrders, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := s.Collection(repository.CollOrders).UpdateOne(context.Background(),
			repository.Filter{"_id": id}, map[string]any{"status": "pending"}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(1), res.ModifiedCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unchanged", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).
			WithArgs(repository.CollOrders, id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
				AddRow(id, []byte(`{"_id":"`+id+`","status":"pending"}`)))
		mock.ExpectCommit()

		res, err := s.Collection(repository.CollOrders).UpdateOne(context.Background(),
			repository.Filter{"_id": id}, map[string]any{"status": "pending"}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(0), res.ModifiedCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Upsert inserts", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).
			WithArgs(repository.CollProducts, id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)")).
			WithArgs(repository.CollProducts, id, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		res, err := s.Collection(repository.CollProducts).UpdateOne(context.Background(),
			repository.Filter{"_id": id}, map[string]any{"quantity": 3}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UpsertedCount)
		assert.Equal(t, id, res.UpsertedID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLCollection_DeleteOne(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE collection = ? AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ? ORDER BY seq ASC LIMIT 1")).
		WithArgs(repository.CollUsers, `$."email"`, "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := s.Collection(repository.CollUsers).DeleteOne(context.Background(), repository.Filter{"email": "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)
}

func TestMySQLStore_WithTx(t *testing.T) {
	t.Run("Rollback on error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO documents`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectRollback()

		boom := errors.New("order update failed")
		err := s.WithTx(context.Background(), func(ctx context.Context) error {
			if _, err := s.Collection(repository.CollPayments).InsertOne(ctx, model.Payment{TransactionID: "t1"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nested calls share the transaction", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO documents`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := s.WithTx(context.Background(), func(ctx context.Context) error {
			return s.WithTx(ctx, func(ctx context.Context) error {
				_, err := s.Collection(repository.CollPayments).InsertOne(ctx, model.Payment{TransactionID: "t1"})
				return err
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
