package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/idempotency"
	"github.com/ahinestrog/bookstore/internal/logging"
	"github.com/ahinestrog/bookstore/internal/order"
	"github.com/ahinestrog/bookstore/internal/user"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Detail  string            `json:"detail"`
	Missing []string          `json:"missing,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	respondJSON(w, r, status, ErrorResponse{Detail: detail})
}

// decode reads a JSON body. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondDomainError maps package errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing    *order.MissingShippingFieldsError
		payment    *order.UnsupportedPaymentMethodError
		transition *order.InvalidTransitionError
		bookErr    *catalog.ValidationError
		signup     user.FieldErrors
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, r, http.StatusBadRequest, "Cart is empty.")
	case errors.As(err, &missing):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Detail:  "Please fill in all required shipping details.",
			Missing: missing.Fields,
		})
	case errors.As(err, &payment):
		respondError(w, r, http.StatusBadRequest, "Currently only Cash on Delivery is available. Please choose COD.")
	case errors.Is(err, order.ErrTransactionConflict), errors.Is(err, idempotency.ErrInProgress):
		respondError(w, r, http.StatusConflict, "The request conflicted with a concurrent change, please retry.")
	case errors.As(err, &transition):
		respondError(w, r, http.StatusBadRequest, transition.Error())
	case errors.As(err, &bookErr):
		fields := make(map[string]string, len(bookErr.Fields))
		for _, f := range bookErr.Fields {
			fields[f] = "invalid value"
		}
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{Detail: "Invalid book.", Fields: fields})
	case errors.As(err, &signup):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{Detail: "Invalid signup.", Fields: signup})
	case errors.Is(err, user.ErrEmailTaken):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Detail: "Invalid signup.",
			Fields: map[string]string{"email": "user with this email already exists."},
		})
	case errors.Is(err, catalog.ErrDuplicateISBN):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Detail: "Invalid book.",
			Fields: map[string]string{"isbn": "book with this ISBN already exists."},
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, catalog.ErrInUse):
		respondError(w, r, http.StatusConflict, "Book is referenced by placed orders.")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound), errors.Is(err, user.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Not found.")
	default:
		logging.FromCtx(r.Context()).Error().Err(err).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}
