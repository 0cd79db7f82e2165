package httpapi

import (
	"net/http"
)

type addCartItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity *int  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

// GET /api/cart-items
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	c, err := h.d.Cart.Get(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartView(c))
}

// POST /api/cart-items adds to the quantity already in the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req addCartItemRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookID <= 0 {
		respondError(w, r, http.StatusBadRequest, "book_id is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	c, err := h.d.Cart.Add(r.Context(), id.UserID, req.BookID, qty)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toCartView(c))
}

// PATCH /api/cart-items/{book_id}; quantity 0 removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	bookID, ok := pathID(r, "book_id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	var req updateCartItemRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, r, http.StatusBadRequest, "quantity is required")
		return
	}
	c, err := h.d.Cart.SetQuantity(r.Context(), id.UserID, bookID, *req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartView(c))
}

// DELETE /api/cart-items/{book_id}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	bookID, ok := pathID(r, "book_id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if _, err := h.d.Cart.Remove(r.Context(), id.UserID, bookID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
