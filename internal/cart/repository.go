package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/store"
)

type Repository interface {
	List(ctx context.Context, userID int64) ([]Item, error)
	Add(ctx context.Context, userID, bookID int64, qty int) error
	SetQuantity(ctx context.Context, userID, bookID int64, qty int) error
	Remove(ctx context.Context, userID, bookID int64) error
	Clear(ctx context.Context, userID int64) (int64, error)
}

type sqliteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) Repository { return &sqliteRepo{db: db} }

const listSQL = `
	SELECT c.id, c.user_id, c.book_id, c.quantity,
	       b.id, b.title, b.author, b.price_cents, b.isbn, b.category, b.description, b.created_unix, b.updated_unix
	FROM cart_items c JOIN books b ON b.id = c.book_id
	WHERE c.user_id = ?
	ORDER BY c.id`

// Lines reads the user's cart with current book prices. q may be a
// transaction so that checkout sees the same rows it later deletes.
func Lines(ctx context.Context, q store.DBTX, userID int64) ([]Item, error) {
	rows, err := q.QueryContext(ctx, listSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var (
			it               Item
			b                catalog.Book
			cents            int64
			category         string
			created, updated int64
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.BookID, &it.Quantity,
			&b.ID, &b.Title, &b.Author, &cents, &b.ISBN, &category, &b.Description, &created, &updated); err != nil {
			return nil, err
		}
		b.Price = money.FromCents(cents)
		b.Category = catalog.Category(category)
		b.CreatedAt = time.Unix(created, 0).UTC()
		b.UpdatedAt = time.Unix(updated, 0).UTC()
		it.Book = &b
		out = append(out, it)
	}
	return out, rows.Err()
}

// ClearUser deletes every cart row of the user and reports how many went.
func ClearUser(ctx context.Context, q store.DBTX, userID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return res.RowsAffected()
}

func (r *sqliteRepo) List(ctx context.Context, userID int64) ([]Item, error) {
	return Lines(ctx, r.db, userID)
}

func (r *sqliteRepo) Add(ctx context.Context, userID, bookID int64, qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(user_id, book_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, book_id)
		DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, bookID, qty)
	if err != nil {
		// the merged quantity went past MaxQuantity
		if store.IsCheckViolation(err) {
			return ErrInvalidQuantity
		}
		if store.IsConstraint(err) {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetQuantity overwrites a line's quantity; zero removes the line.
func (r *sqliteRepo) SetQuantity(ctx context.Context, userID, bookID int64, qty int) error {
	if qty < 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		return r.Remove(ctx, userID, bookID)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity=? WHERE user_id=? AND book_id=?`, qty, userID, bookID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return expectOne(res)
}

func (r *sqliteRepo) Remove(ctx context.Context, userID, bookID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id=? AND book_id=?`, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return expectOne(res)
}

func (r *sqliteRepo) Clear(ctx context.Context, userID int64) (int64, error) {
	return ClearUser(ctx, r.db, userID)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means the line or its book is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, catalog.ErrNotFound)
}
