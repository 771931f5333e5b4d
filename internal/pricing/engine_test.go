package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/pricing"
	"github.com/mossline/pos-engine/internal/shipping"
)

func TestTaxScenarios(t *testing.T) {
	t.Parallel()

	// 100.00 at 7% is exactly 7.00.
	require.Equal(t, money.Money(700), pricing.Tax(10000, 700))
	// 50.00 at 8.5% is exactly 4.25.
	require.Equal(t, money.Money(425), pricing.Tax(5000, 850))
	require.Equal(t, money.Money(0), pricing.Tax(0, 700))
	require.Equal(t, money.Money(0), pricing.Tax(10000, 0))
}

func TestSplitTaxProrationConsistency(t *testing.T) {
	t.Parallel()

	fullSubtotal := money.Money(6650)
	fullTax := pricing.Tax(fullSubtotal, 700)

	// Paying the full check yields exactly the full tax.
	require.Equal(t, fullTax, pricing.SplitTax(fullTax, fullSubtotal, fullSubtotal))
	// Paying nothing yields no tax.
	require.Equal(t, money.Money(0), pricing.SplitTax(fullTax, 0, fullSubtotal))
	// Empty check collapses to zero.
	require.Equal(t, money.Money(0), pricing.SplitTax(fullTax, 100, 0))
	// Oversized split clamps to the full tax, never more.
	require.Equal(t, fullTax, pricing.SplitTax(fullTax, fullSubtotal+1, fullSubtotal))
}

func TestComputeOrderTotalComposition(t *testing.T) {
	t.Parallel()

	// subtotal=100, shipping=5.99, tax=7.00, tip=18.00 => total=130.99.
	c := cart.New(700).
		WithOrderType(cart.OrderTypeShip).
		AddItem(cart.LineItem{ItemID: "kit", UnitPrice: 10000})
	method := &shipping.Method{ID: "std", Rate: 599}

	s := pricing.Compute(c, method, 1800)
	require.Equal(t, money.Money(10000), s.Subtotal)
	require.Equal(t, money.Money(599), s.Shipping)
	require.Equal(t, money.Money(700), s.Tax)
	require.Equal(t, money.Money(1800), s.Tip)
	require.Equal(t, money.Money(13099), s.Total)
}

func TestComputeShippingThresholdBoundary(t *testing.T) {
	t.Parallel()

	free := money.Money(5000)
	method := &shipping.Method{ID: "ground", Rate: 799, FreeAbove: &free}

	under := cart.New(0).
		WithOrderType(cart.OrderTypeShip).
		AddItem(cart.LineItem{ItemID: "a", UnitPrice: 4999})
	require.Equal(t, money.Money(799), pricing.Compute(under, method, 0).Shipping)

	at := cart.New(0).
		WithOrderType(cart.OrderTypeShip).
		AddItem(cart.LineItem{ItemID: "a", UnitPrice: 5000})
	require.Equal(t, money.Money(0), pricing.Compute(at, method, 0).Shipping)
}

func TestComputeNegativeTipClamps(t *testing.T) {
	t.Parallel()

	c := cart.New(700).AddItem(cart.LineItem{ItemID: "a", UnitPrice: 1000})
	s := pricing.Compute(c, nil, -500)
	require.Equal(t, money.Money(0), s.Tip)
}

func TestComputeSplit(t *testing.T) {
	t.Parallel()

	c := cart.New(700).
		AddItem(cart.LineItem{ItemID: "a", UnitPrice: 1000}).
		UpdateQuantity("a", "", 2).
		AddItem(cart.LineItem{ItemID: "b", UnitPrice: 1550}).
		UpdateQuantity("b", "", 3)
	lineA, _ := c.FindLine("a", "")

	s := pricing.ComputeSplit(c, []cart.LineItem{lineA}, 0)
	require.Equal(t, money.Money(2000), s.Subtotal)

	fullTax := pricing.Tax(c.Subtotal(), 700)
	require.Equal(t, pricing.SplitTax(fullTax, 2000, c.Subtotal()), s.Tax)
	require.Equal(t, s.Subtotal+s.Tax, s.Total)

	// Selecting every line reproduces the full check figures.
	full := pricing.ComputeSplit(c, c.Lines, 0)
	require.Equal(t, c.Subtotal(), full.Subtotal)
	require.Equal(t, fullTax, full.Tax)
}
