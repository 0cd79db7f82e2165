package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrTransactionConflict means the cart changed under a checkout. It is
	// transient: the same request may succeed when retried.
	ErrTransactionConflict = errors.New("checkout conflicted with a concurrent change")
	ErrNotFound            = errors.New("order not found")
)

type MissingShippingFieldsError struct {
	Fields []string
}

func (e *MissingShippingFieldsError) Error() string {
	return "missing shipping fields: " + strings.Join(e.Fields, ", ")
}

type UnsupportedPaymentMethodError struct {
	Method string
}

func (e *UnsupportedPaymentMethodError) Error() string {
	return fmt.Sprintf("payment method %q is not supported, only COD is accepted", e.Method)
}

type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
