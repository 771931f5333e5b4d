package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/money"
)

func TestAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	c := cart.New(700)
	c = c.AddItem(cart.LineItem{ItemID: "espresso", UnitPrice: 350})
	c = c.AddItem(cart.LineItem{ItemID: "espresso", UnitPrice: 350})

	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
	require.Equal(t, 2, c.ItemCount())
}

func TestAddItemDistinguishesVariations(t *testing.T) {
	t.Parallel()

	c := cart.New(700)
	c = c.AddItem(cart.LineItem{ItemID: "latte", VariationID: "small", UnitPrice: 400})
	c = c.AddItem(cart.LineItem{ItemID: "latte", VariationID: "large", UnitPrice: 500})

	require.Len(t, c.Lines, 2)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	c := cart.New(700).AddItem(cart.LineItem{ItemID: "bagel", UnitPrice: 250})

	for _, qty := range []int{0, -1} {
		updated := c.UpdateQuantity("bagel", "", qty)
		_, ok := updated.FindLine("bagel", "")
		require.False(t, ok, "qty %d should remove the line", qty)
		require.True(t, updated.IsEmpty())
	}
}

func TestOperationsDoNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := cart.New(700).AddItem(cart.LineItem{ItemID: "soup", UnitPrice: 600})
	_ = base.UpdateQuantity("soup", "", 5)
	_ = base.ApplyLineDiscount("soup", "", 100)
	_ = base.RemoveItem("soup", "")

	require.Len(t, base.Lines, 1)
	require.Equal(t, 1, base.Lines[0].Quantity)
	require.Equal(t, money.Money(0), base.Lines[0].Discount)
}

func TestLineTotalClampsAtZero(t *testing.T) {
	t.Parallel()

	c := cart.New(700).
		AddItem(cart.LineItem{ItemID: "cookie", UnitPrice: 200}).
		ApplyLineDiscount("cookie", "", 500)

	line, ok := c.FindLine("cookie", "")
	require.True(t, ok)
	require.Equal(t, money.Money(0), line.Total())
	require.Equal(t, money.Money(0), c.Subtotal())
	// Only the amount actually taken off is reported.
	require.Equal(t, money.Money(200), c.TotalLineDiscounts())
}

func TestSubtotalScenario(t *testing.T) {
	t.Parallel()

	c := cart.New(700).
		AddItem(cart.LineItem{ItemID: "a", UnitPrice: 1000}).
		UpdateQuantity("a", "", 2).
		AddItem(cart.LineItem{ItemID: "b", UnitPrice: 1550}).
		UpdateQuantity("b", "", 3)

	// 2 x 10.00 + 3 x 15.50 = 66.50.
	require.Equal(t, money.Money(6650), c.Subtotal())
}

func TestModifiersAreAdditive(t *testing.T) {
	t.Parallel()

	c := cart.New(700).AddItem(cart.LineItem{
		ItemID:    "latte",
		UnitPrice: 450,
		Modifiers: []cart.Modifier{
			{ID: "oat", Name: "Oat milk", PriceAdjustment: 75},
			{ID: "shot", Name: "Extra shot", PriceAdjustment: 100},
		},
	})
	line, _ := c.FindLine("latte", "")
	require.Equal(t, money.Money(625), line.Total())
}

func TestPriceOverrideSupersedesUnitAndModifiers(t *testing.T) {
	t.Parallel()

	c := cart.New(700).
		AddItem(cart.LineItem{
			ItemID:    "steak",
			UnitPrice: 2900,
			Modifiers: []cart.Modifier{{ID: "side", PriceAdjustment: 300}},
		}).
		OverridePrice("steak", "", 2500, "manager comp")

	line, _ := c.FindLine("steak", "")
	require.Equal(t, money.Money(2500), line.Total())
	require.Equal(t, money.Money(2900), line.UnitPrice)
	require.Equal(t, "manager comp", line.OverrideReason)
}

func TestWeightSupersedesQuantity(t *testing.T) {
	t.Parallel()

	c := cart.New(700).
		AddItem(cart.LineItem{ItemID: "salmon", UnitPrice: 1299}).
		UpdateQuantity("salmon", "", 4).
		SetWeight("salmon", "", 0.5)

	line, _ := c.FindLine("salmon", "")
	require.Equal(t, 4, line.Quantity)
	// 12.99 x 0.5 = 6.495 -> 6.50 half-up.
	require.Equal(t, money.Money(650), line.Total())
}

func TestClearKeepsMetadata(t *testing.T) {
	t.Parallel()

	c := cart.New(850).
		WithOrderType(cart.OrderTypeShip).
		AddItem(cart.LineItem{ItemID: "mug", UnitPrice: 1200}).
		Clear()

	require.True(t, c.IsEmpty())
	require.Equal(t, cart.OrderTypeShip, c.OrderType)
	require.Equal(t, int64(850), c.TaxBps)
}

func TestUnmarshalCorruptPayloadFallsBackToEmptyCart(t *testing.T) {
	t.Parallel()

	c := cart.Unmarshal([]byte(`{"lines": not-json`), 700)
	require.True(t, c.IsEmpty())
	require.Equal(t, int64(700), c.TaxBps)
}

func TestMarshalRoundTripDropsDeadLines(t *testing.T) {
	t.Parallel()

	data, err := cart.Marshal(cart.Cart{
		TaxBps: 700,
		Lines: []cart.LineItem{
			{ItemID: "ok", Quantity: 1, UnitPrice: 100},
			{ItemID: "dead", Quantity: 0, UnitPrice: 100},
			{ItemID: "", Quantity: 3},
		},
	})
	require.NoError(t, err)

	c := cart.Unmarshal(data, 700)
	require.Len(t, c.Lines, 1)
	require.Equal(t, "ok", c.Lines[0].ItemID)
}
