// Package money keeps prices exact: amounts live as integer cents in storage
// and as two-place decimals everywhere else.
package money

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const places = 2

// ErrOutOfRange is returned for amounts whose cents do not fit in an int64.
var ErrOutOfRange = errors.New("amount out of range")

// FromCents converts a stored cents column into a decimal amount.
func FromCents(cents int64) decimal.Decimal { return decimal.New(cents, -places) }

// ToCents converts a decimal amount into cents. Amounts with more than two
// decimal places are rejected rather than rounded.
func ToCents(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(places)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), places)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return shifted.IntPart(), nil
}

// Parse reads a price such as "10.5" or "1234.99".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if _, err := ToCents(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Line returns price × qty.
func Line(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// String renders an amount with exactly two places, e.g. "25.50".
func String(d decimal.Decimal) string { return d.StringFixed(places) }

// Display renders an amount with thousands separators, e.g. "1,234.50".
func Display(d decimal.Decimal) string {
	cents := d.Shift(places).IntPart()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}
