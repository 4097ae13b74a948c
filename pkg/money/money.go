// Package money converts decimal major-unit amounts to integer minor units.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToCents converts a major-unit amount to cents, rounding half away from zero.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts cents back to a two-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
