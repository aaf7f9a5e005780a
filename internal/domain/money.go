package domain

import "github.com/shopspring/decimal"

func init() {
	// Amounts are JSON numbers on the wire, matching what storefront clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

// TotalTolerance is the largest accepted difference between a client-computed
// order total and the server-computed one.
var TotalTolerance = decimal.New(1, -2)

// ToPaise converts a rupee amount to integer minor units, rounding half away
// from zero.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromPaise converts integer minor units to a rupee amount.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}

// LineTotal returns price multiplied by quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// WithinTolerance reports whether a and b differ by at most TotalTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(TotalTolerance)
}
