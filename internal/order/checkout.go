package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/logging"
	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/store"
)

const (
	RKOrderPlaced        = "order.placed"
	RKOrderStatusChanged = "order.status_changed"
)

// deliveryDays is how far after placement an order is expected to arrive.
const deliveryDays = 5

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_orders_placed_total",
		Help: "Orders successfully placed",
	})
	checkoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_checkout_failures_total",
			Help: "Checkouts rejected or aborted, by reason",
		},
		[]string{"reason"},
	)
)

type Events interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

type OrderPlacedPayload struct {
	EventID string         `json:"event_id"`
	OrderID int64          `json:"order_id"`
	UserID  int64          `json:"user_id"`
	Total   string         `json:"total"`
	Items   []OrderItemEvt `json:"items"`
}

type OrderItemEvt struct {
	BookID   int64  `json:"book_id"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Checkout turns a user's cart into a placed order.
type Checkout struct {
	db      *sql.DB
	events  Events
	now     func() time.Time
	retries int
}

type Option func(*Checkout)

// WithClock overrides the time source used for created_at and expected delivery.
func WithClock(now func() time.Time) Option { return func(c *Checkout) { c.now = now } }

// WithRetries sets how many times a conflicted checkout is re-run.
func WithRetries(n int) Option { return func(c *Checkout) { c.retries = n } }

func NewCheckout(db *sql.DB, events Events, opts ...Option) *Checkout {
	c := &Checkout{db: db, events: events, now: time.Now, retries: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaceOrder validates the input, then atomically copies the cart into a new
// order at current prices and empties the cart. Either all of that happens or
// none of it does.
func (c *Checkout) PlaceOrder(ctx context.Context, userID int64, in ShippingInput) (*Order, error) {
	var (
		o   *Order
		err error
	)
	for attempt := 0; ; attempt++ {
		o, err = c.place(ctx, userID, in)
		if !errors.Is(err, ErrTransactionConflict) || attempt >= c.retries {
			break
		}
		logging.FromCtx(ctx).Debug().Int64("user_id", userID).Int("attempt", attempt+1).Msg("checkout conflict, retrying")
	}
	if err != nil {
		checkoutFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	ordersPlaced.Inc()

	logging.FromCtx(ctx).Info().
		Int64("order_id", o.ID).
		Int64("user_id", userID).
		Str("total", money.String(o.Total)).
		Int("items", len(o.Items)).
		Msg("order placed")
	c.publish(ctx, o)
	return o, nil
}

func (c *Checkout) place(ctx context.Context, userID int64, in ShippingInput) (*Order, error) {
	var o *Order
	err := store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		lines, err := cart.Lines(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		shipping, method, err := in.Validate()
		if err != nil {
			return err
		}

		now := c.now().UTC()
		y, m, d := now.Date()
		o = &Order{
			UserID:           userID,
			Status:           StatusProcessing,
			Shipping:         shipping,
			PaymentMethod:    method,
			ExpectedDelivery: time.Date(y, m, d+deliveryDays, 0, 0, 0, 0, time.UTC),
			CreatedAt:        time.Unix(now.Unix(), 0).UTC(),
		}
		o.UpdatedAt = o.CreatedAt

		if o.ID, err = insertOrder(ctx, tx, o); err != nil {
			return err
		}

		o.Items = make([]Item, len(lines))
		for i, l := range lines {
			o.Items[i] = Item{
				BookID:   l.BookID,
				Quantity: l.Quantity,
				Price:    l.Book.Price,
				Book:     l.Book,
			}
		}
		if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
			return err
		}

		o.Total = o.ItemsTotal()
		cents, err := money.ToCents(o.Total)
		if err != nil {
			return err
		}
		if err := setTotal(ctx, tx, o.ID, cents); err != nil {
			return err
		}

		n, err := cart.ClearUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if n != int64(len(lines)) {
			return ErrTransactionConflict
		}
		return nil
	})
	if err != nil && store.IsBusy(err) {
		return nil, fmt.Errorf("%w: %v", ErrTransactionConflict, err)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (c *Checkout) publish(ctx context.Context, o *Order) {
	if c.events == nil {
		return
	}
	p := OrderPlacedPayload{
		EventID: uuid.NewString(),
		OrderID: o.ID,
		UserID:  o.UserID,
		Total:   money.String(o.Total),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderItemEvt{BookID: it.BookID, Quantity: it.Quantity, Price: money.String(it.Price)})
	}
	if err := c.events.PublishJSON(ctx, RKOrderPlaced, p); err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Int64("order_id", o.ID).Msg("order.placed not published")
	}
}

func failureReason(err error) string {
	var (
		mf *MissingShippingFieldsError
		up *UnsupportedPaymentMethodError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &mf):
		return "missing_shipping"
	case errors.As(err, &up):
		return "payment_method"
	case errors.Is(err, ErrTransactionConflict):
		return "conflict"
	default:
		return "internal"
	}
}
