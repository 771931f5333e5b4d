// Package cart implements the line item store of the pricing engine.
// A Cart is an immutable value: every operation returns a new Cart and
// leaves the receiver untouched, so callers can hold snapshots safely.
package cart

import (
	"strings"

	"github.com/mossline/pos-engine/internal/money"
)

// OrderType describes how the order reaches the customer.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeShip     OrderType = "ship"
	OrderTypePickup   OrderType = "pickup"
)

// Modifier is an additive price adjustment attached to a line item.
type Modifier struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	PriceAdjustment money.Money `json:"priceAdjustment"`
}

// LineItem is a single product entry in a cart.
type LineItem struct {
	ItemID         string       `json:"itemId"`
	VariationID    string       `json:"variationId,omitempty"`
	CategoryID     string       `json:"categoryId,omitempty"`
	Name           string       `json:"name,omitempty"`
	Quantity       int          `json:"quantity"`
	UnitPrice      money.Money  `json:"unitPrice"`
	PriceOverride  *money.Money `json:"priceOverride,omitempty"`
	OverrideReason string       `json:"overrideReason,omitempty"`
	Weight         *float64     `json:"weight,omitempty"`
	Discount       money.Money  `json:"discount"`
	Modifiers      []Modifier   `json:"modifiers,omitempty"`
	AppliedRuleID  string       `json:"appliedRuleId,omitempty"`
}

// EffectiveUnitPrice is the per-unit price after override and modifiers.
// An override supersedes both the catalog price and modifier adjustments.
func (li LineItem) EffectiveUnitPrice() money.Money {
	if li.PriceOverride != nil {
		return *li.PriceOverride
	}
	unit := li.UnitPrice
	for _, m := range li.Modifiers {
		unit += m.PriceAdjustment
	}
	return unit
}

// Total is the extended line price: effective unit price times weight (for
// scale-priced items) or quantity, less the line discount, never negative.
func (li LineItem) Total() money.Money {
	unit := li.EffectiveUnitPrice()
	var extended money.Money
	if li.Weight != nil {
		extended = money.Scale(unit, *li.Weight)
	} else {
		extended = unit * money.Money(li.Quantity)
	}
	total := extended - li.Discount
	if total < 0 {
		return 0
	}
	return total
}

// Cart is an ordered collection of line items plus order-level metadata.
// Lines are unique by (itemID, variationID); insertion order is preserved
// for display only.
type Cart struct {
	Lines     []LineItem `json:"lines"`
	OrderType OrderType  `json:"orderType,omitempty"`
	TableID   string     `json:"tableId,omitempty"`
	TaxBps    int64      `json:"taxBps"`
}

// New returns an empty cart with the given tax rate in effect.
func New(taxBps int64) Cart {
	return Cart{TaxBps: taxBps}
}

func (c Cart) clone() Cart {
	out := c
	out.Lines = make([]LineItem, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

func (c Cart) find(itemID, variationID string) int {
	for i, li := range c.Lines {
		if li.ItemID == itemID && li.VariationID == variationID {
			return i
		}
	}
	return -1
}

// FindLine locates a line by its (itemID, variationID) identity.
func (c Cart) FindLine(itemID, variationID string) (LineItem, bool) {
	if i := c.find(itemID, variationID); i >= 0 {
		return c.Lines[i], true
	}
	return LineItem{}, false
}

// AddItem appends a new line with quantity 1, or increments the quantity of
// an existing line with the same identity. The existing line's price and
// modifiers stay untouched on increment.
func (c Cart) AddItem(line LineItem) Cart {
	out := c.clone()
	if i := out.find(line.ItemID, line.VariationID); i >= 0 {
		out.Lines[i].Quantity++
		return out
	}
	line.Quantity = 1
	if line.Discount < 0 {
		line.Discount = 0
	}
	out.Lines = append(out.Lines, line)
	return out
}

// UpdateQuantity sets the quantity of a line; a quantity of zero or less
// removes the line so the cart never stores dead entries.
func (c Cart) UpdateQuantity(itemID, variationID string, qty int) Cart {
	i := c.find(itemID, variationID)
	if i < 0 {
		return c
	}
	if qty <= 0 {
		return c.RemoveItem(itemID, variationID)
	}
	out := c.clone()
	out.Lines[i].Quantity = qty
	return out
}

// SetWeight marks a line as scale-priced. Weight supersedes quantity as the
// price multiplier; a non-positive weight removes the line.
func (c Cart) SetWeight(itemID, variationID string, weight float64) Cart {
	i := c.find(itemID, variationID)
	if i < 0 {
		return c
	}
	if weight <= 0 {
		return c.RemoveItem(itemID, variationID)
	}
	out := c.clone()
	w := weight
	out.Lines[i].Weight = &w
	return out
}

// ApplyLineDiscount sets the discount amount for a line. Negative input is
// clamped to zero; oversized discounts are kept and the line total clamps
// at zero instead of rejecting the entry.
func (c Cart) ApplyLineDiscount(itemID, variationID string, discount money.Money) Cart {
	i := c.find(itemID, variationID)
	if i < 0 {
		return c
	}
	if discount < 0 {
		discount = 0
	}
	out := c.clone()
	out.Lines[i].Discount = discount
	return out
}

// OverridePrice pins the line's unit price and records the reason for
// audit display. The catalog UnitPrice is preserved.
func (c Cart) OverridePrice(itemID, variationID string, price money.Money, reason string) Cart {
	i := c.find(itemID, variationID)
	if i < 0 {
		return c
	}
	if price < 0 {
		price = 0
	}
	out := c.clone()
	p := price
	out.Lines[i].PriceOverride = &p
	out.Lines[i].OverrideReason = strings.TrimSpace(reason)
	return out
}

// RemoveItem drops a line from the cart.
func (c Cart) RemoveItem(itemID, variationID string) Cart {
	i := c.find(itemID, variationID)
	if i < 0 {
		return c
	}
	out := c.clone()
	out.Lines = append(out.Lines[:i], out.Lines[i+1:]...)
	return out
}

// Clear empties the cart, keeping order-level metadata.
func (c Cart) Clear() Cart {
	out := c
	out.Lines = nil
	return out
}

// WithOrderType sets the fulfillment type for the order.
func (c Cart) WithOrderType(t OrderType) Cart {
	out := c.clone()
	out.OrderType = t
	return out
}

// ItemCount is the sum of quantities across lines. Scale-priced lines
// count once.
func (c Cart) ItemCount() int {
	var n int
	for _, li := range c.Lines {
		if li.Weight != nil {
			n++
			continue
		}
		n += li.Quantity
	}
	return n
}

// Subtotal sums effective line totals. Line discounts are already netted
// into each line's total, so Subtotal is the after-discount figure.
func (c Cart) Subtotal() money.Money {
	var sum money.Money
	for _, li := range c.Lines {
		sum += li.Total()
	}
	return sum
}

// TotalLineDiscounts reports the aggregate discount applied across lines,
// capped per line at the extended price so the figure matches what was
// actually taken off.
func (c Cart) TotalLineDiscounts() money.Money {
	var sum money.Money
	for _, li := range c.Lines {
		gross := li.EffectiveUnitPrice()
		if li.Weight != nil {
			gross = money.Scale(gross, *li.Weight)
		} else {
			gross *= money.Money(li.Quantity)
		}
		d := li.Discount
		if d > gross {
			d = gross
		}
		sum += d
	}
	return sum
}

// IsEmpty reports whether no line carries a positive quantity or weight.
func (c Cart) IsEmpty() bool {
	for _, li := range c.Lines {
		if li.Weight != nil && *li.Weight > 0 {
			return false
		}
		if li.Quantity > 0 {
			return false
		}
	}
	return true
}
