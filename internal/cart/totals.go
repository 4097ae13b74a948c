package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// PricingPolicy is the flat shipping rule: free above the threshold, otherwise the fee.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricingPolicy is threshold 100.00 with a 10.00 fee.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingFee:           decimal.NewFromInt(10),
	}
}

// PolicyFromConfig builds the policy from configuration.
func PolicyFromConfig(cfg config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
	}
}

// Line is one priced quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals are exact decimals plus their cent representation.
type Totals struct {
	Subtotal decimal.Decimal `json:"-"`
	Shipping decimal.Decimal `json:"-"`
	Total    decimal.Decimal `json:"-"`

	SubtotalCents int64 `json:"subtotal_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// ComputeTotals prices lines with their live unit prices.
// Shipping is waived only when the subtotal is strictly above the threshold,
// so an empty line set still carries the fee. Cart views zero it through viewTotals.
func ComputeTotals(lines []Line, policy PricingPolicy) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	shipping := policy.ShippingFee
	if subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := subtotal.Add(shipping)

	return Totals{
		Subtotal:      subtotal,
		Shipping:      shipping,
		Total:         total,
		SubtotalCents: money.ToCents(subtotal),
		ShippingCents: money.ToCents(shipping),
		TotalCents:    money.ToCents(total),
	}
}

// viewTotals is what a cart view shows: nothing to ship means nothing to pay.
func viewTotals(lines []Line, policy PricingPolicy) Totals {
	if len(lines) == 0 {
		return Totals{Subtotal: decimal.Zero, Shipping: decimal.Zero, Total: decimal.Zero}
	}
	return ComputeTotals(lines, policy)
}
