package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/manufacturer-api/internal/config"
	"github.com/iliyamo/manufacturer-api/internal/database"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/queue"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

type fakeIntents struct {
	amount   int64
	currency string
}

func (f *fakeIntents) CreateIntent(_ context.Context, amount int64, currency string) (string, error) {
	f.amount, f.currency = amount, currency
	return "pi_test_secret", nil
}

type server struct {
	t       *testing.T
	e       *echo.Echo
	store   repository.Store
	intents *fakeIntents
}

func newServer(t *testing.T, policy config.AccessPolicy) *server {
	t.Helper()
	store := database.NewMemoryStore()
	intents := &fakeIntents{}
	e := New(Deps{
		Cfg: config.Config{
			StoreDriver:  config.DriverMemory,
			JWTSecret:    "s3cret",
			TokenTTL:     24 * time.Hour,
			Currency:     "usd",
			RoleCacheTTL: 30 * time.Second,
			Policy:       policy,
		},
		Store:   store,
		Intents: intents,
		Events:  queue.NopPublisher{},
	})
	return &server{t: t, e: e, store: store, intents: intents}
}

func (s *server) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPut, "/user/"+email, "", `{"name":"Test"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(s.t, out.Token)
	return out.Token
}

// promote is the trusted bootstrap path used by the CLI.
func (s *server) promote(email string) {
	s.t.Helper()
	_, err := repository.NewUserRepo(s.store).SetRole(context.Background(), email, model.RoleAdmin)
	require.NoError(s.t, err)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAdminGateScenario(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())
	tok := s.login("a@x.com")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/user", tok, "").Code)

	s.promote("a@x.com")
	s.login("b@x.com")

	rec := s.do(http.MethodGet, "/user", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]model.User](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, "b@x.com", users[0].Email, "newest first")
}

func TestOrderLifecycleScenario(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())
	tokA := s.login("a@x.com")
	tokAdmin := s.login("boss@x.com")
	s.promote("boss@x.com")

	rec := s.do(http.MethodPost, "/order", tokA, `{"email":"a@x.com","price":20}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[repository.InsertResult](t, rec).InsertedID

	rec = s.do(http.MethodPut, "/order/"+id, tokA, `{"transactionId":"t1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"$set":{"status":"pending","transactionId":"t1"}}`, rec.Body.String())

	order := decode[model.Order](t, s.do(http.MethodGet, "/order/"+id, tokA, ""))
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "t1", order.TransactionID)

	payments, err := repository.NewPaymentRepo(s.store).ListByTransaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/order/accept/"+id, tokA, `{"status":"approved"}`).Code)

	rec = s.do(http.MethodPut, "/order/accept/"+id, tokAdmin, `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order = decode[model.Order](t, s.do(http.MethodGet, "/order/"+id, tokA, ""))
	assert.Equal(t, "approved", order.Status)

	t.Run("Finalize validates", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/order/accept/"+id, tokAdmin, `{"status":""}`).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/order/accept/"+repository.NewID(), tokAdmin, `{"status":"x"}`).Code)
	})

	t.Run("Payment for unknown order", func(t *testing.T) {
		rec := s.do(http.MethodPut, "/order/"+repository.NewID(), tokA, `{"transactionId":"t2"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/order/bad-id", tokA, `{"transactionId":"t2"}`).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/order/"+id, tokA, `{}`).Code)
	})

	t.Run("List filters by email", func(t *testing.T) {
		tokB := s.login("b@x.com")
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/order", tokB, `{"price":5}`).Code)

		all := decode[[]model.Order](t, s.do(http.MethodGet, "/order", tokA, ""))
		require.Len(t, all, 2)
		assert.Equal(t, "b@x.com", all[0].Email, "owner defaults to caller, newest first")

		mine := decode[[]model.Order](t, s.do(http.MethodGet, "/order?email=a@x.com", tokA, ""))
		require.Len(t, mine, 1)
		assert.Equal(t, id, mine[0].ID)
	})
}

func TestTokenVerifier(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/order", "", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/order", "garbage", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/create-payment-intent", "", `{"price":1}`).Code)
}

func TestUsers(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())

	t.Run("Role in login body is ignored", func(t *testing.T) {
		rec := s.do(http.MethodPut, "/user/sneaky@x.com", "", `{"role":"admin"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		tok := decode[map[string]any](t, rec)["token"].(string)
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/user", tok, "").Code)
	})

	tok := s.login("a@x.com")

	t.Run("Profile is self-only", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(http.MethodPut, "/user/update/a@x.com", tok, `{"phone":"555"}`).Code)
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/user/update/b@x.com", tok, `{"phone":"555"}`).Code)

		u := decode[model.User](t, s.do(http.MethodGet, "/user/a@x.com", tok, ""))
		assert.Equal(t, "555", u.Phone)
		assert.Equal(t, "Test", u.Name)
	})

	t.Run("Get unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/user/ghost@x.com", tok, "").Code)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/user/not-an-email", tok, "").Code)
	})

	t.Run("Admin changes roles and deletes", func(t *testing.T) {
		adminTok := s.login("boss@x.com")
		s.promote("boss@x.com")

		rec := s.do(http.MethodPut, "/user/admin/a@x.com", adminTok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/user", tok, "").Code)

		require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/user/admin/a@x.com", adminTok, `{"role":""}`).Code)
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/user", tok, "").Code)

		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/user/admin/a@x.com", adminTok, `{"role":"owner"}`).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/user/admin/ghost@x.com", adminTok, "").Code)

		rec = s.do(http.MethodDelete, "/user/a@x.com", adminTok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[repository.DeleteResult](t, rec).DeletedCount)
	})
}

func TestProducts(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())
	tok := s.login("boss@x.com")
	s.promote("boss@x.com")
	userTok := s.login("a@x.com")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/product", userTok, `{"name":"gear","price":3}`).Code)

	var ids []string
	for _, name := range []string{"bolt", "nut", "gear"} {
		rec := s.do(http.MethodPost, "/product", tok, `{"name":"`+name+`","price":2.5,"quantity":10}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ids = append(ids, decode[repository.InsertResult](t, rec).InsertedID)
	}

	list := decode[[]model.Product](t, s.do(http.MethodGet, "/product?limit=2", "", ""))
	require.Len(t, list, 2)
	assert.Equal(t, "gear", list[0].Name)
	assert.Equal(t, "nut", list[1].Name)
	assert.Len(t, decode[[]model.Product](t, s.do(http.MethodGet, "/product", "", "")), 3)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/product?limit=lots", "", "").Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/product", tok, `{"name":"","price":-1}`).Code)

	t.Run("Get", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/product/"+ids[0], "", "").Code)
		p := decode[model.Product](t, s.do(http.MethodGet, "/product/"+ids[0], userTok, ""))
		assert.Equal(t, "bolt", p.Name)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/product/xyz", userTok, "").Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/product/"+repository.NewID(), userTok, "").Code)
	})

	t.Run("Quantity is public by default", func(t *testing.T) {
		rec := s.do(http.MethodPut, "/product/"+ids[1], "", `{"quantity":4}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[repository.UpdateResult](t, rec).ModifiedCount)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/product/"+ids[1], "", `{}`).Code)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/product/"+ids[2], userTok, "").Code)
		rec := s.do(http.MethodDelete, "/product/"+ids[2], tok, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Product](t, s.do(http.MethodGet, "/product", "", "")), 2)
	})
}

func TestAccessPolicy(t *testing.T) {
	s := newServer(t, config.AccessPolicy{ProductQuantity: config.AccessAdmin, OrderDelete: config.AccessOwner})
	tokA := s.login("a@x.com")
	tokB := s.login("b@x.com")

	id := repository.NewID()
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPut, "/product/"+id, "", `{"quantity":1}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/product/"+id, tokA, `{"quantity":1}`).Code)

	rec := s.do(http.MethodPost, "/order", tokA, `{"price":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := decode[repository.InsertResult](t, rec).InsertedID

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/order/"+orderID, tokB, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/order/"+orderID, tokA, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/order/"+orderID, tokA, "").Code)
}

func TestReviews(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())
	tok := s.login("a@x.com")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/review", "", `{"name":"A","review":"ok","rating":4}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/review", tok, `{"name":"A","review":"ok","rating":9}`).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/review", tok, `{"name":"A","review":"first","rating":4}`).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/review", tok, `{"name":"A","review":"second","rating":5}`).Code)

	reviews := decode[[]model.Review](t, s.do(http.MethodGet, "/review", "", ""))
	require.Len(t, reviews, 2)
	assert.Equal(t, "second", reviews[0].Review)
	assert.Equal(t, "a@x.com", reviews[0].Email)
}

func TestPaymentIntent(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())
	tok := s.login("a@x.com")

	rec := s.do(http.MethodPost, "/create-payment-intent", tok, `{"price":19.99}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"clientSecret":"pi_test_secret"}`, rec.Body.String())
	assert.Equal(t, int64(1999), s.intents.amount)
	assert.Equal(t, "usd", s.intents.currency)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/create-payment-intent", tok, `{"price":0}`).Code)
}

func TestServiceRoutes(t *testing.T) {
	s := newServer(t, config.DefaultAccessPolicy())

	rec := s.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server running", rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "", "").Code)
	assert.NotEmpty(t, s.do(http.MethodGet, "/", "", "").Header().Get(echo.HeaderXRequestID))
}
