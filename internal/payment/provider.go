// Package payment abstracts the external payment processor. The engine
// treats it as an opaque call: it supplies the frozen totals and receives
// success or failure, never retrying on its own.
package payment

import (
	"context"

	"github.com/mossline/pos-engine/internal/money"
)

// ChargeRequest carries the frozen totals handed to the processor.
type ChargeRequest struct {
	OrderToken         string      `json:"orderToken"`
	Amount             money.Money `json:"amount"`
	TipAmount          money.Money `json:"tipAmount"`
	PaymentMethodNonce string      `json:"paymentMethodNonce"`
	SelectedItemIDs    []string    `json:"selectedItemGuids,omitempty"`
}

// ChargeResult is the processor's normalised response.
type ChargeResult struct {
	Success          bool        `json:"success"`
	ReceiptNumber    string      `json:"receiptNumber,omitempty"`
	RemainingBalance money.Money `json:"remainingBalance,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// Provider is an upstream payment processor.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
