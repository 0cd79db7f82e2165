package cart

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/store"
)

func setup(t *testing.T) (*sql.DB, *Service) {
	t.Helper()
	db, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "cart.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, NewService(NewSQLiteRepo(db))
}

func seedBook(t *testing.T, db *sql.DB, isbn, price string) int64 {
	t.Helper()
	id, err := catalog.NewSQLiteRepo(db).Create(context.Background(), &catalog.Book{
		Title:    "Book " + isbn,
		Author:   "Someone",
		Price:    decimal.RequireFromString(price),
		ISBN:     isbn,
		Category: catalog.CategoryFiction,
	})
	require.NoError(t, err)
	return id
}

func TestAdd_MergesQuantity(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	b := seedBook(t, db, "1", "10.00")

	_, err := svc.Add(ctx, 1, b, 1)
	require.NoError(t, err)
	c, err := svc.Add(ctx, 1, b, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "30.00", c.Total().StringFixed(2))
	assert.Equal(t, "Book 1", c.Items[0].Book.Title)
}

func TestAdd_Rejects(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	b := seedBook(t, db, "1", "10.00")

	_, err := svc.Add(ctx, 1, b, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, 1, 999, 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestAdd_CapsQuantity(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	b := seedBook(t, db, "1", "10.00")

	_, err := svc.Add(ctx, 1, b, MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Add(ctx, 1, b, 1<<60)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, 1, b, MaxQuantity-1)
	require.NoError(t, err)
	// merging past the cap leaves the line as it was
	_, err = svc.Add(ctx, 1, b, 2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	c, err := svc.Add(ctx, 1, b, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
	assert.Equal(t, "9990.00", c.Total().StringFixed(2))

	_, err = svc.SetQuantity(ctx, 1, b, MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCart_ScopedToUser(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	b1 := seedBook(t, db, "1", "10.00")
	b2 := seedBook(t, db, "2", "5.50")

	_, err := svc.Add(ctx, 1, b1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 2, b2, 4)
	require.NoError(t, err)

	c, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, b1, c.Items[0].BookID)

	// user 1 cannot touch user 2's line
	_, err = svc.Remove(ctx, 1, b2)
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "22.00", other.Total().StringFixed(2))
}

func TestSetQuantity(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	b := seedBook(t, db, "1", "2.25")

	_, err := svc.Add(ctx, 7, b, 1)
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, 7, b, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = svc.SetQuantity(ctx, 7, b, 0)
	require.NoError(t, err)
	assert.True(t, c.Empty())

	_, err = svc.SetQuantity(ctx, 7, b, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetQuantity(ctx, 7, b, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestClear(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, 3, seedBook(t, db, "1", "1.00"), 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 3, seedBook(t, db, "2", "1.00"), 1)
	require.NoError(t, err)

	n, err := ClearUser(ctx, db, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	c, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}
