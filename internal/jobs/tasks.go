// Package jobs defines the asynq background tasks that run after payment
// capture: loyalty accrual and receipt rendering.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mossline/pos-engine/internal/money"
)

// Task type names routed through asynq.
const (
	TypeLoyaltyAccrue = "loyalty:accrue"
	TypeReceiptRender = "receipt:render"
)

// LoyaltyAccruePayload carries the spend to convert into points.
type LoyaltyAccruePayload struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
	// Spend excludes tip; points accrue on the pre-tip total.
	Spend money.Money `json:"spend"`
}

// ReceiptRenderPayload identifies the order to render.
type ReceiptRenderPayload struct {
	OrderID string `json:"orderId"`
	StoreID string `json:"storeId"`
	Email   string `json:"email,omitempty"`
}

// NewLoyaltyAccrueTask builds the accrual task.
func NewLoyaltyAccrueTask(p LoyaltyAccruePayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode loyalty payload: %w", err)
	}
	return asynq.NewTask(TypeLoyaltyAccrue, data, asynq.MaxRetry(5)), nil
}

// NewReceiptRenderTask builds the receipt task.
func NewReceiptRenderTask(p ReceiptRenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode receipt payload: %w", err)
	}
	return asynq.NewTask(TypeReceiptRender, data, asynq.MaxRetry(3)), nil
}
