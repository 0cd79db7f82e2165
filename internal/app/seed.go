package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/user"
)

var seedBooks = []catalog.Book{
	{Title: "The Go Programming Language", Author: "Alan A. A. Donovan", Price: decimal.RequireFromString("39.99"), ISBN: "9780134190440", Category: catalog.CategoryAcademic},
	{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Price: decimal.RequireFromString("45.50"), ISBN: "9781449373320", Category: catalog.CategoryAcademic},
	{Title: "Cien años de soledad", Author: "Gabriel García Márquez", Price: decimal.RequireFromString("18.90"), ISBN: "9780307474728", Category: catalog.CategoryFiction},
	{Title: "Dune", Author: "Frank Herbert", Price: decimal.RequireFromString("10.00"), ISBN: "9780441013593", Category: catalog.CategoryFiction},
	{Title: "Sapiens", Author: "Yuval Noah Harari", Price: decimal.RequireFromString("22.00"), ISBN: "9780062316097", Category: catalog.CategoryNonFiction},
	{Title: "The Pragmatic Programmer", Author: "David Thomas", Price: decimal.RequireFromString("5.50"), ISBN: "9780135957059", Category: catalog.CategoryAcademic},
}

// seedCatalog inserts the sample books only into an empty catalog.
func seedCatalog(ctx context.Context, db *sql.DB, repo catalog.Repository) (int, error) {
	var c int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`).Scan(&c); err != nil {
		return 0, err
	}
	if c > 0 {
		return 0, nil
	}
	for i := range seedBooks {
		b := seedBooks[i]
		if _, err := repo.Create(ctx, &b); err != nil {
			return i, err
		}
	}
	return len(seedBooks), nil
}

// ensureAdmin creates the configured staff account unless it already exists.
func ensureAdmin(ctx context.Context, users *user.Service, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := users.CreateAdmin(ctx, email, "admin", password)
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}
