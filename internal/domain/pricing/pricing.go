// Package pricing computes the authoritative price breakdown of a cart or order.
package pricing

import "github.com/shopspring/decimal"

var (
	FreeShippingOver = decimal.NewFromInt(100)
	FlatShipping     = decimal.NewFromInt(10)
	TaxRate          = decimal.RequireFromString("0.15")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Breakdown struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// round2 rounds half away from zero, which is half-up for the non-negative amounts used here.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Compute prices lines: shipping is free strictly above 100, tax is 15% of items.
func Compute(lines []Line) Breakdown {
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	items = round2(items)

	shipping := FlatShipping
	if items.GreaterThan(FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := round2(items.Mul(TaxRate))

	return Breakdown{
		Items:    items,
		Shipping: shipping,
		Tax:      tax,
		Total:    items.Add(shipping).Add(tax),
	}
}

// Cents converts an amount to minor units.
func Cents(d decimal.Decimal) int64 {
	return round2(d).Shift(2).IntPart()
}
