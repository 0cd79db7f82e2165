// Package httpapi is the JSON HTTP surface of the bookstore.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/bookstore/internal/auth"
	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/idempotency"
	"github.com/ahinestrog/bookstore/internal/order"
	"github.com/ahinestrog/bookstore/internal/user"
)

type Deps struct {
	DB          *sql.DB
	Logger      zerolog.Logger
	Tokens      *auth.Tokens
	Sessions    *auth.Sessions // nil keeps logouts in process memory
	Users       *user.Service
	Catalog     *catalog.Service
	Cart        *cart.Service
	Checkout    *order.Checkout
	Orders      *order.Service
	Idempotency idempotency.Store // nil disables X-Idempotency-Key handling

	RequestTimeout time.Duration
	CORSOrigins    []string
}

type Handler struct {
	d Deps
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 5 * time.Second
	}
	if d.Sessions == nil {
		d.Sessions = auth.NewSessions(d.Tokens, auth.NewMemoryBlacklist(0, 24*time.Hour))
	}
	h := &Handler{d: d}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, Metrics, Logging(d.Logger), middleware.Timeout(d.RequestTimeout))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/token/refresh", h.RefreshToken)

		r.Get("/books", h.ListBooks)
		r.Get("/books/{id}", h.GetBook)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.Tokens))

			r.Get("/auth/user", h.CurrentUser)
			r.Post("/auth/logout", h.Logout)

			r.Get("/cart-items", h.GetCart)
			r.Post("/cart-items", h.AddCartItem)
			r.Patch("/cart-items/{book_id}", h.UpdateCartItem)
			r.Delete("/cart-items/{book_id}", h.RemoveCartItem)

			r.Get("/orders", h.ListOrders)
			r.Post("/orders/place", h.PlaceOrder)
			r.Post("/orders/place_order", h.PlaceOrder)
			r.Get("/orders/{id}", h.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/books", h.CreateBook)
				r.Put("/books/{id}", h.UpdateBook)
				r.Delete("/books/{id}", h.DeleteBook)
				r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
			})
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	}).Handler(r)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.d.DB.PingContext(ctx); err != nil {
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}
