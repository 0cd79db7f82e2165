package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/bookstore/internal/auth"
	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/idempotency"
	"github.com/ahinestrog/bookstore/internal/order"
	"github.com/ahinestrog/bookstore/internal/store"
	"github.com/ahinestrog/bookstore/internal/user"
)

type testServer struct {
	handler http.Handler
	tokens  *auth.Tokens
	catalog *catalog.Service
	users   *user.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "api.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := catalog.NewService(catalog.NewSQLiteRepo(db), nil, 16)
	require.NoError(t, err)
	tokens := auth.NewTokens("test-secret", "bookstore", time.Hour)
	users := user.NewService(user.NewRepository(db))

	h := NewRouter(Deps{
		DB:          db,
		Logger:      zerolog.Nop(),
		Tokens:      tokens,
		Sessions:    auth.NewSessions(tokens, auth.NewRedisBlacklist(rdb)),
		Users:       users,
		Catalog:     cat,
		Cart:        cart.NewService(cart.NewSQLiteRepo(db)),
		Checkout:    order.NewCheckout(db, nil),
		Orders:      order.NewService(order.NewRepository(db), nil),
		Idempotency: idempotency.NewRedisStore(rdb, time.Hour),
	})
	return &testServer{handler: h, tokens: tokens, catalog: cat, users: users}
}

func (s *testServer) token(t *testing.T, userID int64, admin bool) string {
	t.Helper()
	tok, _, err := s.tokens.Issue(auth.Identity{UserID: userID, Admin: admin})
	require.NoError(t, err)
	return tok
}

func (s *testServer) book(t *testing.T, isbn, price string) int64 {
	t.Helper()
	b, err := s.catalog.Create(context.Background(), &catalog.Book{
		Title: "Book " + isbn, Author: "Writer", Price: decimal.RequireFromString(price),
		ISBN: isbn, Category: catalog.CategoryAcademic,
	})
	require.NoError(t, err)
	return b.ID
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

var shipping = map[string]string{
	"shipping_full_name":   "Ada Lovelace",
	"shipping_phone":       "555-0100",
	"shipping_address":     "12 Analytical St",
	"shipping_city":        "London",
	"shipping_state":       "Greater London",
	"shipping_postal_code": "NW1",
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "reader@example.com", "username": "reader", "password": "longenough", "password2": "nope-nope",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Password fields didn't match.", errResp.Fields["password"])

	rec = s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "reader@example.com", "username": "reader", "password": "longenough", "password2": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "reader@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "reader@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodeBody[tokenResponse](t, rec)
	require.NotEmpty(t, tok.AccessToken)

	require.NotEmpty(t, tok.RefreshToken)
	require.NotNil(t, tok.User)

	rec = s.do(t, http.MethodGet, "/api/auth/user", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader", decodeBody[userView](t, rec).Username)

	// a refresh token is not an access token
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/user", tok.RefreshToken, nil).Code)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	_, err := s.users.Signup(context.Background(), user.SignupInput{
		Email: "reader@example.com", Username: "reader", Password: "longenough", Password2: "longenough",
	})
	require.NoError(t, err)
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "reader@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodeBody[tokenResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{"refresh": tok.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decodeBody[tokenResponse](t, rec)
	require.NotEmpty(t, fresh.AccessToken)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/user", fresh.AccessToken, nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{"refresh": tok.AccessToken}).Code)

	// logout needs the caller signed in and a refresh token of theirs
	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh": tok.RefreshToken}).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/auth/logout", tok.AccessToken, map[string]string{"refresh": "nonsense"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/auth/logout", s.token(t, 999, false), map[string]string{"refresh": tok.RefreshToken}).Code)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", tok.AccessToken, map[string]string{"refresh": tok.RefreshToken})
	require.Equal(t, http.StatusResetContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{"refresh": tok.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is blacklisted", decodeBody[ErrorResponse](t, rec).Detail)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/cart-items", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/orders", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/books", s.token(t, 1, false), map[string]string{"title": "x"}).Code)
}

func TestBooks(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, 99, true)

	rec := s.do(t, http.MethodPost, "/api/books", admin, map[string]string{
		"title": "Clean Code", "author": "Robert Martin", "price": "31.99",
		"ISBN": "9780132350884", "category": "Academic",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[bookView](t, rec)
	assert.Equal(t, "31.99", created.Price)
	assert.Equal(t, "academic", created.Category)
	assert.Equal(t, "Academic", created.CategoryDisplay)

	rec = s.do(t, http.MethodPost, "/api/books", admin, map[string]string{
		"title": "Dup", "author": "A", "price": "1", "ISBN": "9780132350884", "category": "fiction",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.book(t, "2", "8.00")

	rec = s.do(t, http.MethodGet, "/api/books?category=ACADEMIC&price_min=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[bookPageView](t, rec)
	assert.EqualValues(t, 1, page.Count)
	assert.Equal(t, "Clean Code", page.Results[0].Title)

	rec = s.do(t, http.MethodGet, "/api/books?price_max=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/books/12345", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, 1, false)
	b := s.book(t, "1", "4.50")

	rec := s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeBody[cartView](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "13.50", c.Total)

	rec = s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": 404, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b, "quantity": int64(1) << 60})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b, "quantity": cart.MaxQuantity})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "merging past the cap")

	rec = s.do(t, http.MethodPatch, "/api/cart-items/"+itoa(b), tok, map[string]any{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4.50", decodeBody[cartView](t, rec).Total)

	// other users see an empty cart
	rec = s.do(t, http.MethodGet, "/api/cart-items", s.token(t, 2, false), nil)
	assert.Empty(t, decodeBody[cartView](t, rec).Items)

	rec = s.do(t, http.MethodDelete, "/api/cart-items/"+itoa(b), tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/cart-items/"+itoa(b), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder_Endpoint(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, 1, false)
	a := s.book(t, "A", "10.00")
	b := s.book(t, "B", "5.50")

	rec := s.do(t, http.MethodPost, "/api/orders/place", tok, shipping)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cart is empty.", decodeBody[ErrorResponse](t, rec).Detail)

	s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": a, "quantity": 2})
	s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": b, "quantity": 1})

	partial := map[string]string{}
	for k, v := range shipping {
		partial[k] = v
	}
	delete(partial, "shipping_city")
	partial["shipping_postal_code"] = " "
	rec = s.do(t, http.MethodPost, "/api/orders/place", tok, partial)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"shipping_city", "shipping_postal_code"}, decodeBody[ErrorResponse](t, rec).Missing)

	withCard := map[string]string{"payment_method": "card"}
	for k, v := range shipping {
		withCard[k] = v
	}
	rec = s.do(t, http.MethodPost, "/api/orders/place", tok, withCard)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Detail, "Cash on Delivery")

	rec = s.do(t, http.MethodPost, "/api/orders/place", tok, shipping)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decodeBody[orderView](t, rec)
	assert.Equal(t, "25.50", o.TotalPrice)
	assert.Equal(t, "processing", o.Status)
	assert.Equal(t, "Processing", o.StatusDisplay)
	assert.Equal(t, "Cash on Delivery", o.PaymentMethodDisplay)
	assert.Equal(t, time.Now().UTC().AddDate(0, 0, 5).Format("2006-01-02"), o.ExpectedDelivery)
	assert.Len(t, o.Items, 2)

	rec = s.do(t, http.MethodGet, "/api/cart-items", tok, nil)
	assert.Empty(t, decodeBody[cartView](t, rec).Items)

	rec = s.do(t, http.MethodGet, "/api/orders", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]orderView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "25.50", list[0].TotalPrice)

	rec = s.do(t, http.MethodGet, "/api/orders/"+itoa(o.ID), s.token(t, 2, false), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, 1, false)
	s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": s.book(t, "A", "3.00"), "quantity": 1})

	first := s.do(t, http.MethodPost, "/api/orders/place", tok, shipping, "X-Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	o1 := decodeBody[orderView](t, first)

	// the cart is empty now, yet the same key returns the same order
	second := s.do(t, http.MethodPost, "/api/orders/place", tok, shipping, "X-Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, o1.ID, decodeBody[orderView](t, second).ID)

	third := s.do(t, http.MethodPost, "/api/orders/place", tok, shipping, "X-Idempotency-Key", "other")
	assert.Equal(t, http.StatusBadRequest, third.Code)
}

func TestUpdateOrderStatus_Endpoint(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, 1, false)
	admin := s.token(t, 50, true)
	s.do(t, http.MethodPost, "/api/cart-items", tok, map[string]any{"book_id": s.book(t, "A", "3.00"), "quantity": 1})
	o := decodeBody[orderView](t, s.do(t, http.MethodPost, "/api/orders/place", tok, shipping))

	path := "/api/orders/" + itoa(o.ID) + "/status"
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, path, tok, map[string]string{"status": "shipped"}).Code)

	rec := s.do(t, http.MethodPatch, path, admin, map[string]string{"status": "shipped", "tracking_number": "TRK9"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[orderView](t, rec)
	assert.Equal(t, "Shipped", got.StatusDisplay)
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, "TRK9", *got.TrackingNumber)

	rec = s.do(t, http.MethodPatch, path, admin, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPatch, path, admin, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
