// Package pricing is the single source of monetary arithmetic: line totals,
// order totals, rounding and display formatting. All values are
// decimal.Decimal with two fraction digits; binary floating point is never used.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits stored and displayed for money.
const Places = 2

// MaxQuantity is the largest quantity a single cart or order line may hold.
const MaxQuantity = 999

// Line is a priced quantity of a single item.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// LineTotal returns price * quantity. Callers are responsible for rejecting
// negative prices and non-positive quantities.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total returns the sum of all line totals rounded to two decimal places.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.Price, l.Quantity))
	}
	return Round(sum)
}

// Quantity returns the sum of quantities across lines.
func Quantity(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Round rounds d half away from zero to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// String renders d with exactly two fraction digits, e.g. "12.50".
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Format renders d as a dollar amount, e.g. "$12.50".
func Format(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(Places)
	}
	return "$" + d.StringFixed(Places)
}
