package httpapi

import (
	"time"

	"github.com/ahinestrog/bookstore/internal/cart"
	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/order"
	"github.com/ahinestrog/bookstore/internal/user"
)

// Amounts are rendered as fixed two-place strings so clients never see
// binary floating point.

type bookView struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Price           string `json:"price"`
	ISBN            string `json:"ISBN"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"category_display"`
}

func toBookView(b *catalog.Book) *bookView {
	if b == nil {
		return nil
	}
	return &bookView{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Price:           money.String(b.Price),
		ISBN:            b.ISBN,
		Description:     b.Description,
		Category:        string(b.Category),
		CategoryDisplay: b.Category.Display(),
	}
}

type bookPageView struct {
	Count      int64       `json:"count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	Results    []*bookView `json:"results"`
}

type cartItemView struct {
	ID        int64     `json:"id"`
	Book      *bookView `json:"book"`
	BookID    int64     `json:"book_id"`
	Quantity  int       `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

type cartView struct {
	Items []cartItemView `json:"items"`
	Total string         `json:"total"`
}

func toCartView(c *cart.Cart) cartView {
	v := cartView{Items: make([]cartItemView, 0, len(c.Items)), Total: money.String(c.Total())}
	for _, it := range c.Items {
		v.Items = append(v.Items, cartItemView{
			ID:        it.ID,
			Book:      toBookView(it.Book),
			BookID:    it.BookID,
			Quantity:  it.Quantity,
			LineTotal: money.String(it.LineTotal()),
		})
	}
	return v
}

type orderItemView struct {
	ID       int64     `json:"id"`
	Book     *bookView `json:"book"`
	Quantity int       `json:"quantity"`
	Price    string    `json:"price"`
}

type orderView struct {
	ID                   int64           `json:"id"`
	User                 int64           `json:"user"`
	CreatedAt            time.Time       `json:"created_at"`
	Status               string          `json:"status"`
	StatusDisplay        string          `json:"status_display"`
	TotalPrice           string          `json:"total_price"`
	ShippingFullName     string          `json:"shipping_full_name"`
	ShippingPhone        string          `json:"shipping_phone"`
	ShippingAddress      string          `json:"shipping_address"`
	ShippingCity         string          `json:"shipping_city"`
	ShippingState        string          `json:"shipping_state"`
	ShippingPostalCode   string          `json:"shipping_postal_code"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentMethodDisplay string          `json:"payment_method_display"`
	TrackingNumber       *string         `json:"tracking_number"`
	ExpectedDelivery     string          `json:"expected_delivery"`
	Items                []orderItemView `json:"items"`
}

func toOrderView(o *order.Order) orderView {
	v := orderView{
		ID:                   o.ID,
		User:                 o.UserID,
		CreatedAt:            o.CreatedAt,
		Status:               string(o.Status),
		StatusDisplay:        o.Status.Display(),
		TotalPrice:           money.String(o.Total),
		ShippingFullName:     o.Shipping.FullName,
		ShippingPhone:        o.Shipping.Phone,
		ShippingAddress:      o.Shipping.Address,
		ShippingCity:         o.Shipping.City,
		ShippingState:        o.Shipping.State,
		ShippingPostalCode:   o.Shipping.PostalCode,
		PaymentMethod:        string(o.PaymentMethod),
		PaymentMethodDisplay: o.PaymentMethod.Display(),
		TrackingNumber:       o.TrackingNumber,
		ExpectedDelivery:     o.ExpectedDelivery.Format(order.DateLayout),
		Items:                make([]orderItemView, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, orderItemView{
			ID:       it.ID,
			Book:     toBookView(it.Book),
			Quantity: it.Quantity,
			Price:    money.String(it.Price),
		})
	}
	return v
}

type userView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

func toUserView(u *user.User) userView {
	return userView{ID: u.ID, Email: u.Email, Username: u.Username, Phone: u.Phone}
}
