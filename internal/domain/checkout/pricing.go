package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/manubal/storefront/internal/domain/order"
)

// Pricing holds the order-level charges applied on top of the cart subtotal.
type Pricing struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// DefaultPricing is a flat 50 shipping fee and 5% tax.
func DefaultPricing() Pricing {
	return Pricing{
		ShippingFee: decimal.NewFromInt(50),
		TaxRate:     decimal.RequireFromString("0.05"),
	}
}

// Totals computes the order totals for the given line items. Shipping is
// only charged on a non-zero subtotal; tax is rounded to cents.
func (p Pricing) Totals(items []order.Item) order.Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = p.ShippingFee
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	return order.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
