// Package order persists finished checkouts. An order is an immutable
// snapshot: prices, tax and tip are copied at capture time and never
// recomputed from the catalog afterwards.
package order

import (
	"time"

	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/pricing"
)

// Status values an order moves through. Orders are created already paid;
// fulfillment and refunds happen after capture.
const (
	StatusPaid      = "PAID"
	StatusFulfilled = "FULFILLED"
	StatusRefunded  = "REFUNDED"
)

// Address is the captured shipping destination.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Line is one captured order line.
type Line struct {
	ID          string      `json:"id"`
	ItemID      string      `json:"itemId"`
	VariationID string      `json:"variationId,omitempty"`
	Name        string      `json:"name"`
	Quantity    int         `json:"quantity"`
	Weight      *float64    `json:"weight,omitempty"`
	UnitPrice   money.Money `json:"unitPrice"`
	Discount    money.Money `json:"discount"`
	Total       money.Money `json:"total"`
}

// Order is the persisted checkout snapshot.
type Order struct {
	ID               string          `json:"id"`
	StoreID          string          `json:"storeId"`
	SessionID        string          `json:"sessionId"`
	Flow             string          `json:"flow"`
	Status           string          `json:"status"`
	CustomerID       string          `json:"customerId,omitempty"`
	CustomerName     string          `json:"customerName,omitempty"`
	CustomerContact  string          `json:"customerContact,omitempty"`
	Fulfillment      string          `json:"fulfillment,omitempty"`
	TableID          string          `json:"tableId,omitempty"`
	ShippingMethodID string          `json:"shippingMethodId,omitempty"`
	Address          *Address        `json:"address,omitempty"`
	Pricing          pricing.Summary `json:"pricing"`
	Currency         string          `json:"currency"`
	ReceiptNumber    string          `json:"receiptNumber,omitempty"`
	Lines            []Line          `json:"lines"`
	CreatedAt        time.Time       `json:"createdAt"`
}
