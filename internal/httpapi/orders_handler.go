package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ahinestrog/bookstore/internal/idempotency"
	"github.com/ahinestrog/bookstore/internal/order"
)

type placeOrderRequest struct {
	ShippingFullName   string `json:"shipping_full_name"`
	ShippingPhone      string `json:"shipping_phone"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingState      string `json:"shipping_state"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	PaymentMethod      string `json:"payment_method"`
}

func (req placeOrderRequest) input() order.ShippingInput {
	return order.ShippingInput{
		Shipping: order.Shipping{
			FullName:   req.ShippingFullName,
			Phone:      req.ShippingPhone,
			Address:    req.ShippingAddress,
			City:       req.ShippingCity,
			State:      req.ShippingState,
			PostalCode: req.ShippingPostalCode,
		},
		PaymentMethod: req.PaymentMethod,
	}
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// POST /api/orders/place
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key == "" || h.d.Idempotency == nil {
		o, err := h.d.Checkout.PlaceOrder(r.Context(), id.UserID, req.input())
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusCreated, toOrderView(o))
		return
	}

	var placed *order.Order
	v, replayed, err := idempotency.Do(r.Context(), h.d.Idempotency, strconv.FormatInt(id.UserID, 10), key, func() (string, error) {
		o, err := h.d.Checkout.PlaceOrder(r.Context(), id.UserID, req.input())
		if err != nil {
			return "", err
		}
		placed = o
		return strconv.FormatInt(o.ID, 10), nil
	})
	if err != nil && placed == nil {
		respondDomainError(w, r, err)
		return
	}
	if placed == nil {
		orderID, _ := strconv.ParseInt(v, 10, 64)
		if placed, err = h.d.Orders.GetOrder(r.Context(), id.UserID, orderID); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	respondJSON(w, r, http.StatusCreated, toOrderView(placed))
}

// GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	orders, err := h.d.Orders.ListOrders(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	orderID, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	o, err := h.d.Orders.GetOrder(r.Context(), id.UserID, orderID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}

// PATCH /api/orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	to := order.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !to.Valid() {
		respondError(w, r, http.StatusBadRequest, "unknown status")
		return
	}
	o, err := h.d.Orders.UpdateStatus(r.Context(), orderID, to, req.TrackingNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderView(o))
}
