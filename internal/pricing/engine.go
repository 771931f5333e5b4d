// Package pricing combines subtotal, discounts, tax, shipping and tip into
// a final payable total.
package pricing

import (
	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/shipping"
)

// Summary aggregates the computed totals for a check. Subtotal is the
// after-line-discount figure; Total = Subtotal + Shipping + Tax + Tip.
type Summary struct {
	Subtotal money.Money `json:"subtotal"`
	Discount money.Money `json:"discount"`
	Tax      money.Money `json:"tax"`
	Shipping money.Money `json:"shipping"`
	Tip      money.Money `json:"tip"`
	Total    money.Money `json:"total"`
}

// Tax computes full-check tax from a basis-point rate, half-up on the cent.
func Tax(subtotal money.Money, rateBps int64) money.Money {
	if subtotal <= 0 || rateBps <= 0 {
		return 0
	}
	return money.Percent(subtotal, rateBps)
}

// SplitTax prorates an already-computed full-check tax for a partial
// payment. Proration runs against the full tax amount rather than the
// rate, so jurisdiction-specific rounding baked into fullTax is preserved.
// A zero full subtotal yields zero.
func SplitTax(fullTax, splitSubtotal, fullSubtotal money.Money) money.Money {
	if splitSubtotal < 0 {
		splitSubtotal = 0
	}
	if splitSubtotal > fullSubtotal {
		splitSubtotal = fullSubtotal
	}
	return money.ProRata(fullTax, splitSubtotal, fullSubtotal)
}

// Compute produces the totals summary for a cart snapshot. The shipping
// method may be nil; tip is the already-resolved tip amount.
func Compute(c cart.Cart, method *shipping.Method, tipAmount money.Money) Summary {
	subtotal := c.Subtotal()
	tax := Tax(subtotal, c.TaxBps)
	ship := shipping.Cost(c.OrderType, method, subtotal)
	if tipAmount < 0 {
		tipAmount = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: c.TotalLineDiscounts(),
		Tax:      tax,
		Shipping: ship,
		Tip:      tipAmount,
		Total:    subtotal + ship + tax + tipAmount,
	}
}

// ComputeSplit produces the totals a guest paying for a subset of lines
// sees: the selected subtotal, its prorated share of the full-check tax,
// and the tip computed on the selected subtotal only. Shipping never
// applies to split table-service checks.
func ComputeSplit(c cart.Cart, selected []cart.LineItem, tipAmount money.Money) Summary {
	fullSubtotal := c.Subtotal()
	fullTax := Tax(fullSubtotal, c.TaxBps)

	var splitSubtotal money.Money
	for _, li := range selected {
		splitSubtotal += li.Total()
	}
	tax := SplitTax(fullTax, splitSubtotal, fullSubtotal)
	if tipAmount < 0 {
		tipAmount = 0
	}
	return Summary{
		Subtotal: splitSubtotal,
		Tax:      tax,
		Tip:      tipAmount,
		Total:    splitSubtotal + tax + tipAmount,
	}
}
