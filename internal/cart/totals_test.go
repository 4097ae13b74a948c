package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotalsFreeShippingAboveThreshold(t *testing.T) {
	totals := ComputeTotals([]Line{
		{UnitPrice: d("29.00"), Quantity: 2},
		{UnitPrice: d("89.00"), Quantity: 1},
	}, DefaultPricingPolicy())

	require.True(t, totals.Subtotal.Equal(d("147.00")))
	require.True(t, totals.Shipping.IsZero())
	require.True(t, totals.Total.Equal(d("147.00")))
	require.EqualValues(t, 14700, totals.SubtotalCents)
	require.EqualValues(t, 0, totals.ShippingCents)
	require.EqualValues(t, 14700, totals.TotalCents)
}

func TestComputeTotalsChargesShippingBelowThreshold(t *testing.T) {
	totals := ComputeTotals([]Line{{UnitPrice: d("20.00"), Quantity: 2}}, DefaultPricingPolicy())

	require.True(t, totals.Subtotal.Equal(d("40.00")))
	require.True(t, totals.Shipping.Equal(d("10.00")))
	require.True(t, totals.Total.Equal(d("50.00")))
	require.EqualValues(t, 5000, totals.TotalCents)
}

func TestComputeTotalsThresholdIsExclusive(t *testing.T) {
	totals := ComputeTotals([]Line{{UnitPrice: d("100.00"), Quantity: 1}}, DefaultPricingPolicy())
	require.EqualValues(t, 1000, totals.ShippingCents)
	require.EqualValues(t, 11000, totals.TotalCents)
}

func TestComputeTotalsAvoidsFloatDrift(t *testing.T) {
	totals := ComputeTotals([]Line{
		{UnitPrice: d("0.10"), Quantity: 3},
		{UnitPrice: d("19.99"), Quantity: 3},
	}, DefaultPricingPolicy())
	require.EqualValues(t, 6027, totals.SubtotalCents)
	require.EqualValues(t, 7027, totals.TotalCents)
}

func TestComputeTotalsEmptyStillChargesShipping(t *testing.T) {
	totals := ComputeTotals(nil, DefaultPricingPolicy())
	require.EqualValues(t, 0, totals.SubtotalCents)
	require.EqualValues(t, 1000, totals.ShippingCents)
	require.EqualValues(t, 1000, totals.TotalCents)
}

func TestViewTotalsEmptyIsZero(t *testing.T) {
	totals := viewTotals(nil, DefaultPricingPolicy())
	require.EqualValues(t, 0, totals.ShippingCents)
	require.EqualValues(t, 0, totals.TotalCents)
	require.True(t, totals.Total.IsZero())

	totals = viewTotals([]Line{{UnitPrice: d("40.00"), Quantity: 1}}, DefaultPricingPolicy())
	require.EqualValues(t, 5000, totals.TotalCents)
}

func TestComputeTotalsCustomPolicy(t *testing.T) {
	policy := PricingPolicy{FreeShippingThreshold: d("75"), ShippingFee: d("4.99")}
	totals := ComputeTotals([]Line{{UnitPrice: d("75.00"), Quantity: 1}}, policy)
	require.EqualValues(t, 499, totals.ShippingCents)

	totals = ComputeTotals([]Line{{UnitPrice: d("75.01"), Quantity: 1}}, policy)
	require.EqualValues(t, 0, totals.ShippingCents)
}
