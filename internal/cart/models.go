package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/money"
)

// MaxQuantity is the most copies of one book a cart line may hold. The
// cart_items table enforces the same bound.
const MaxQuantity = 999

var (
	ErrNotFound        = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
)

// Item is one cart line with the book inlined at its current price.
type Item struct {
	ID       int64
	UserID   int64
	BookID   int64
	Quantity int
	Book     *catalog.Book
}

// LineTotal is the current book price times the quantity.
func (it Item) LineTotal() decimal.Decimal {
	if it.Book == nil {
		return decimal.Zero
	}
	return money.Line(it.Book.Price, it.Quantity)
}

type Cart struct {
	UserID int64
	Items  []Item
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }
