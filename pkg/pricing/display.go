package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DisplayDiscount shaves the platform margin off a wholesaler's discount
// before it is shown to retailers. The visible discount never drops below
// zero.
func DisplayDiscount(discountPercent, marginPercent decimal.Decimal) decimal.Decimal {
	reduction := discountPercent.Mul(marginPercent).Div(hundred)
	visible := discountPercent.Sub(reduction)
	if visible.IsNegative() {
		return decimal.Zero
	}
	return visible
}

// DisplayPrice is the retailer-facing unit price: MRP discounted by the
// margin-adjusted discount. Settlement never uses it; orders capture the
// bid's own terms.
func DisplayPrice(mrp, discountPercent, marginPercent decimal.Decimal) decimal.Decimal {
	return FinalPrice(mrp, DisplayDiscount(discountPercent, marginPercent))
}

// FinalPrice computes the unit price implied by a discount percentage off MRP.
func FinalPrice(mrp decimal.Decimal, discountPercent decimal.Decimal) decimal.Decimal {
	return mrp.Sub(mrp.Mul(discountPercent).Div(hundred))
}

// TotalPrice is the order line total for a quantity at the discounted unit price.
func TotalPrice(mrp decimal.Decimal, discountPercent decimal.Decimal, quantity int) decimal.Decimal {
	return FinalPrice(mrp, discountPercent).Mul(decimal.NewFromInt(int64(quantity)))
}
