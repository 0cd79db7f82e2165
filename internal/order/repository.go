package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/logging"
	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/store"
)

// Repository is the order ledger. Orders and their items are only ever
// inserted; status and tracking number are the only columns that change.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

type RepositoryOption func(*Repository)

// WithRepositoryClock overrides the time source for updated_at stamps.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *Order) (int64, error) {
	res, err := tx.ExecContext(ctx, `
  INSERT INTO orders(user_id, status, total_cents,
    shipping_full_name, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_postal_code,
    payment_method, tracking_number, expected_delivery, created_unix, updated_unix)
  VALUES(?,?,0,?,?,?,?,?,?,?,NULL,?,?,?)`,
		o.UserID, string(o.Status),
		o.Shipping.FullName, o.Shipping.Phone, o.Shipping.Address, o.Shipping.City, o.Shipping.State, o.Shipping.PostalCode,
		string(o.PaymentMethod), o.ExpectedDelivery.Format(DateLayout), o.CreatedAt.Unix(), o.UpdatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return res.LastInsertId()
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []Item) error {
	stmt, err := tx.PrepareContext(ctx, `
  INSERT INTO order_items(order_id, book_id, quantity, price_cents)
  VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range items {
		cents, err := money.ToCents(items[i].Price)
		if err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx, orderID, items[i].BookID, items[i].Quantity, cents)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		if items[i].ID, err = res.LastInsertId(); err != nil {
			return err
		}
		items[i].OrderID = orderID
	}
	return nil
}

func setTotal(ctx context.Context, tx *sql.Tx, orderID int64, cents int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE orders SET total_cents=? WHERE id=?`, cents, orderID)
	return err
}

const orderColumns = `id, user_id, status, total_cents,
    shipping_full_name, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_postal_code,
    payment_method, tracking_number, expected_delivery, created_unix, updated_unix`

type scanner interface{ Scan(dest ...any) error }

// scanOrder also returns the stored total so callers can compare it with the
// total recomputed from items.
func scanOrder(s scanner) (*Order, int64, error) {
	var (
		o                Order
		status, method   string
		totalCents       int64
		tracking         sql.NullString
		expected         string
		created, updated int64
	)
	err := s.Scan(&o.ID, &o.UserID, &status, &totalCents,
		&o.Shipping.FullName, &o.Shipping.Phone, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode,
		&method, &tracking, &expected, &created, &updated)
	if err != nil {
		return nil, 0, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	o.Total = money.FromCents(totalCents)
	if tracking.Valid {
		t := tracking.String
		o.TrackingNumber = &t
	}
	if o.ExpectedDelivery, err = time.Parse(DateLayout, expected); err != nil {
		return nil, 0, fmt.Errorf("order %d expected_delivery: %w", o.ID, err)
	}
	o.CreatedAt = time.Unix(created, 0).UTC()
	o.UpdatedAt = time.Unix(updated, 0).UTC()
	return &o, totalCents, nil
}

// ListByUser returns the user's orders newest first with items attached.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=? ORDER BY created_unix DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	var (
		out    []*Order
		stored = map[int64]int64{}
	)
	for rows.Next() {
		o, cents, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stored[o.ID] = cents
		out = append(out, o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, out, stored); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one order of the user. Orders of other users are not found.
func (r *Repository) Get(ctx context.Context, userID, orderID int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=? AND user_id=?`, orderID, userID)
}

// GetByID is the unscoped lookup used by administrative status changes.
func (r *Repository) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, orderID)
}

func (r *Repository) get(ctx context.Context, query string, args ...any) (*Order, error) {
	o, cents, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*Order{o}, map[int64]int64{o.ID: cents}); err != nil {
		return nil, err
	}
	return o, nil
}

// attachItems loads items with book detail and replaces each order's total
// with the sum of its items. Disagreement with the stored column is logged.
func (r *Repository) attachItems(ctx context.Context, orders []*Order, stored map[int64]int64) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
  SELECT i.id, i.order_id, i.book_id, i.quantity, i.price_cents,
         b.title, b.author, b.price_cents, b.isbn, b.category, b.description, b.created_unix, b.updated_unix
  FROM order_items i JOIN books b ON b.id = i.book_id
  WHERE i.order_id IN (`+store.Placeholders(len(ids))+`)
  ORDER BY i.order_id, i.id`, store.Args(ids)...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                   Item
			b                    catalog.Book
			priceCents, bookCent int64
			category             string
			created, updated     int64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Quantity, &priceCents,
			&b.Title, &b.Author, &bookCent, &b.ISBN, &category, &b.Description, &created, &updated); err != nil {
			return err
		}
		it.Price = money.FromCents(priceCents)
		b.ID = it.BookID
		b.Price = money.FromCents(bookCent)
		b.Category = catalog.Category(category)
		b.CreatedAt = time.Unix(created, 0).UTC()
		b.UpdatedAt = time.Unix(updated, 0).UTC()
		it.Book = &b
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, o := range orders {
		live := o.ItemsTotal()
		if cents, err := money.ToCents(live); err != nil || cents != stored[o.ID] {
			logging.FromCtx(ctx).Warn().
				Int64("order_id", o.ID).
				Int64("stored_cents", stored[o.ID]).
				Str("items_total", money.String(live)).
				Msg("stored order total disagrees with items")
		}
		o.Total = live
	}
	return nil
}

// UpdateStatus moves an order along the status machine and optionally sets
// its tracking number. When to equals the current status only the tracking
// number changes. It reports whether anything was written; a request that
// repeats the current status and tracking number leaves the row untouched.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, to Status, tracking *string) (bool, error) {
	var changed bool
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			cur     string
			current sql.NullString
		)
		err := tx.QueryRowContext(ctx, `SELECT status, tracking_number FROM orders WHERE id=?`, orderID).Scan(&cur, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		from := Status(cur)
		if from != to && !from.CanTransition(to) {
			return &InvalidTransitionError{From: from, To: to}
		}
		newTracking := tracking != nil && (!current.Valid || current.String != *tracking)
		if from == to && !newTracking {
			return nil
		}

		now := r.now().Unix()
		if newTracking {
			_, err = tx.ExecContext(ctx,
				`UPDATE orders SET status=?, tracking_number=?, updated_unix=? WHERE id=?`, string(to), *tracking, now, orderID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE orders SET status=?, updated_unix=? WHERE id=?`, string(to), now, orderID)
		}
		changed = err == nil
		return err
	})
	return changed, err
}
