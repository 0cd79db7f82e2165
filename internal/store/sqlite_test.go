package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	var n int
	err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name IN ('books','cart_items','orders','order_items','users')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var sqlText string
	require.NoError(t, db.QueryRow(`SELECT sql FROM sqlite_master WHERE type='table' AND name='cart_items'`).Scan(&sqlText))
	assert.Contains(t, sqlText, "BETWEEN 1 AND 999")
}

func TestCartQuantityCheck(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO books(title,author,price_cents,isbn,category,description,created_unix,updated_unix)
		VALUES('T','A',100,'111','fiction','',0,0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO cart_items(user_id,book_id,quantity) VALUES(1,1,0)`)
	assert.True(t, IsConstraint(err), "zero quantity must be rejected, got %v", err)

	_, err = db.Exec(`INSERT INTO cart_items(user_id,book_id,quantity) VALUES(1,1,1000)`)
	assert.True(t, IsCheckViolation(err), "quantity above the cap must be rejected, got %v", err)

	_, err = db.Exec(`INSERT INTO cart_items(user_id,book_id,quantity) VALUES(1,1,2)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO cart_items(user_id,book_id,quantity) VALUES(1,1,998)
		ON CONFLICT(user_id, book_id) DO UPDATE SET quantity = quantity + excluded.quantity`)
	assert.True(t, IsCheckViolation(err), "merged quantity above the cap must be rejected, got %v", err)
	var qty int
	require.NoError(t, db.QueryRow(`SELECT quantity FROM cart_items WHERE user_id=1 AND book_id=1`).Scan(&qty))
	assert.Equal(t, 2, qty)
	_, err = db.Exec(`INSERT INTO cart_items(user_id,book_id,quantity) VALUES(1,1,3)`)
	assert.True(t, IsUniqueViolation(err), "duplicate (user, book) must be rejected, got %v", err)
}

func TestOrderItemsImmutable(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO books(title,author,price_cents,isbn,category,description,created_unix,updated_unix)
		VALUES('T','A',100,'111','fiction','',0,0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders(user_id,status,total_cents,shipping_full_name,shipping_phone,shipping_address,
		shipping_city,shipping_state,shipping_postal_code,payment_method,expected_delivery,created_unix,updated_unix)
		VALUES(1,'processing',100,'n','p','a','c','s','z','COD','2026-01-06',0,0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO order_items(order_id,book_id,quantity,price_cents) VALUES(1,1,1,100)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE order_items SET price_cents=1 WHERE order_id=1`)
	assert.True(t, IsConstraint(err), "got %v", err)
	_, err = db.Exec(`DELETE FROM order_items WHERE order_id=1`)
	assert.True(t, IsConstraint(err), "got %v", err)
	_, err = db.Exec(`UPDATE orders SET shipping_city='elsewhere' WHERE id=1`)
	assert.True(t, IsConstraint(err), "got %v", err)

	// status and tracking stay mutable
	_, err = db.Exec(`UPDATE orders SET status='shipped', tracking_number='TRK1' WHERE id=1`)
	assert.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO books(title,author,price_cents,isbn,category,description,created_unix,updated_unix)
			VALUES('T','A',100,'111','fiction','',0,0)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM books`).Scan(&n))
	assert.Zero(t, n)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
	assert.Equal(t, []any{int64(1), int64(2)}, Args([]int64{1, 2}))
}
