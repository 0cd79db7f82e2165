package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/store"
)

type Repository interface {
	Count(ctx context.Context, f Filter) (int64, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Book, error)
	Get(ctx context.Context, id int64) (*Book, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*Book, error)
	Create(ctx context.Context, b *Book) (int64, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error
}

type sqliteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) Repository { return &sqliteRepo{db: db} }

const bookColumns = `id,title,author,price_cents,isbn,category,description,created_unix,updated_unix`

func where(f Filter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		qp := "%" + strings.ToLower(q) + "%"
		conds = append(conds, `(lower(title) LIKE ? OR lower(author) LIKE ?)`)
		args = append(args, qp, qp)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		conds = append(conds, `lower(category) = ?`)
		args = append(args, strings.ToLower(c))
	}
	if f.PriceMin != nil {
		conds = append(conds, `price_cents >= ?`)
		args = append(args, f.PriceMin.Shift(2).Ceil().IntPart())
	}
	if f.PriceMax != nil {
		conds = append(conds, `price_cents <= ?`)
		args = append(args, f.PriceMax.Shift(2).Floor().IntPart())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *sqliteRepo) Count(ctx context.Context, f Filter) (int64, error) {
	w, args := where(f)
	var c int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`+w, args...).Scan(&c)
	return c, err
}

func (r *sqliteRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Book, error) {
	w, args := where(f)
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books`+w+` ORDER BY id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanBook(s scanner) (*Book, error) {
	var (
		b                Book
		cents            int64
		category         string
		created, updated int64
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &cents, &b.ISBN, &category, &b.Description, &created, &updated); err != nil {
		return nil, err
	}
	b.Price = money.FromCents(cents)
	b.Category = Category(category)
	b.CreatedAt = time.Unix(created, 0).UTC()
	b.UpdatedAt = time.Unix(updated, 0).UTC()
	return &b, nil
}

func (r *sqliteRepo) Get(ctx context.Context, id int64) (*Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query book %d: %w", id, err)
	}
	return b, nil
}

func (r *sqliteRepo) GetMany(ctx context.Context, ids []int64) (map[int64]*Book, error) {
	out := make(map[int64]*Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+store.Placeholders(len(ids))+`)`, store.Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

func (r *sqliteRepo) Create(ctx context.Context, b *Book) (int64, error) {
	cents, err := money.ToCents(b.Price)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO books(title,author,price_cents,isbn,category,description,created_unix,updated_unix)
		VALUES(?,?,?,?,?,?,?,?)`,
		b.Title, b.Author, cents, b.ISBN, string(b.Category), b.Description, now.Unix(), now.Unix())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, ErrDuplicateISBN
		}
		return 0, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	b.ID = id
	b.CreatedAt = time.Unix(now.Unix(), 0).UTC()
	b.UpdatedAt = b.CreatedAt
	return id, nil
}

func (r *sqliteRepo) Update(ctx context.Context, b *Book) error {
	cents, err := money.ToCents(b.Price)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE books SET title=?, author=?, price_cents=?, isbn=?, category=?, description=?, updated_unix=?
		WHERE id=?`,
		b.Title, b.Author, cents, b.ISBN, string(b.Category), b.Description, now.Unix(), b.ID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateISBN
		}
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	b.UpdatedAt = time.Unix(now.Unix(), 0).UTC()
	return nil
}

// ErrInUse is returned when a book is referenced by placed orders.
var ErrInUse = errors.New("book is referenced by orders")

func (r *sqliteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	if err != nil {
		if store.IsConstraint(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
