package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/money"
)

// DateLayout is the wire and storage format of expected_delivery.
const DateLayout = "2006-01-02"

type Shipping struct {
	FullName   string
	Phone      string
	Address    string
	City       string
	State      string
	PostalCode string
}

// ShippingInput is what a customer submits at checkout. PaymentMethod may be
// empty, in which case cash on delivery is assumed.
type ShippingInput struct {
	Shipping
	PaymentMethod string
}

type Order struct {
	ID               int64
	UserID           int64
	Status           Status
	Total            decimal.Decimal
	Shipping         Shipping
	PaymentMethod    PaymentMethod
	TrackingNumber   *string
	ExpectedDelivery time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []Item
}

// Item is an immutable order line. Price is the book price at purchase time.
type Item struct {
	ID       int64
	OrderID  int64
	BookID   int64
	Quantity int
	Price    decimal.Decimal
	Book     *catalog.Book
}

func (it Item) LineTotal() decimal.Decimal { return money.Line(it.Price, it.Quantity) }

// ItemsTotal is Σ price × quantity over the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}
