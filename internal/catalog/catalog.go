// Package catalog serves the sellable items for a store. Prices always
// come from here, never from the client: the cart layer resolves every
// line against the catalog before it is added.
package catalog

import (
	"github.com/mossline/pos-engine/internal/money"
)

// Variation is a sellable variant of an item (size, roast, cut). A
// variation's price replaces the base price outright.
type Variation struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// Modifier is an add-on whose price is added per unit.
type Modifier struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// Item is one sellable catalog entry. SoldByWeight items price per unit
// weight and are sold in fractional quantities.
type Item struct {
	ID           string      `json:"id"`
	StoreID      string      `json:"storeId"`
	CategoryID   string      `json:"categoryId,omitempty"`
	Name         string      `json:"name"`
	Price        money.Money `json:"price"`
	SoldByWeight bool        `json:"soldByWeight,omitempty"`
	Active       bool        `json:"active"`
	Variations   []Variation `json:"variations,omitempty"`
	Modifiers    []Modifier  `json:"modifiers,omitempty"`
}

// Variation returns the named variation if the item carries it.
func (i Item) Variation(id string) (Variation, bool) {
	for _, v := range i.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// Modifier returns the named modifier if the item carries it.
func (i Item) Modifier(id string) (Modifier, bool) {
	for _, m := range i.Modifiers {
		if m.ID == id {
			return m, true
		}
	}
	return Modifier{}, false
}
