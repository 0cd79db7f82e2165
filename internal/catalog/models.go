package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFiction    Category = "fiction"
	CategoryNonFiction Category = "non-fiction"
	CategoryAcademic   Category = "academic"
)

var categoryDisplay = map[Category]string{
	CategoryFiction:    "Fiction",
	CategoryNonFiction: "Non-Fiction",
	CategoryAcademic:   "Academic",
}

// ParseCategory matches case-insensitively.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := categoryDisplay[c]
	return c, ok
}

func (c Category) Display() string { return categoryDisplay[c] }

type Book struct {
	ID          int64
	Title       string
	Author      string
	Price       decimal.Decimal
	ISBN        string
	Category    Category
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrNotFound      = errors.New("book not found")
	ErrDuplicateISBN = errors.New("isbn already exists")
)

// ValidationError lists the offending fields of a book write.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid book fields: " + strings.Join(e.Fields, ", ")
}

// Validate checks a book before it is written.
func (b *Book) Validate() error {
	var bad []string
	if strings.TrimSpace(b.Title) == "" {
		bad = append(bad, "title")
	}
	if strings.TrimSpace(b.Author) == "" {
		bad = append(bad, "author")
	}
	if b.Price.IsNegative() || !b.Price.Equal(b.Price.Truncate(2)) {
		bad = append(bad, "price")
	}
	if isbn := strings.TrimSpace(b.ISBN); isbn == "" || len(isbn) > 13 {
		bad = append(bad, "isbn")
	}
	if _, ok := ParseCategory(string(b.Category)); !ok {
		bad = append(bad, "category")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// Filter narrows a catalog listing.
type Filter struct {
	Query    string // matched against title and author
	Category string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}
