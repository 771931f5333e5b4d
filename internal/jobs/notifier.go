package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mossline/pos-engine/internal/events"
	"github.com/mossline/pos-engine/internal/money"
)

// TaskEnqueuer is the slice of asynq.Client the notifier needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier fans captured payments out to background tasks. It implements
// events.Notifier and is registered on the event bus.
type Notifier struct {
	Client  TaskEnqueuer
	StoreID string
}

// Notify enqueues follow-up work for payment.captured events. Other topics
// are ignored.
func (n Notifier) Notify(ctx context.Context, event events.Event) error {
	if n.Client == nil || event.Topic != events.TopicPaymentCaptured {
		return nil
	}
	var payload struct {
		OrderID    string      `json:"orderId"`
		CustomerID string      `json:"customerId"`
		Total      money.Money `json:"total"`
		Tip        money.Money `json:"tip"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("jobs: decode captured payload: %w", err)
	}
	if payload.OrderID == "" {
		return nil
	}

	if payload.CustomerID != "" {
		task, err := NewLoyaltyAccrueTask(LoyaltyAccruePayload{
			OrderID:    payload.OrderID,
			CustomerID: payload.CustomerID,
			Spend:      payload.Total - payload.Tip,
		})
		if err != nil {
			return err
		}
		if _, err := n.Client.EnqueueContext(ctx, task); err != nil {
			return fmt.Errorf("jobs: enqueue loyalty accrual: %w", err)
		}
	}

	task, err := NewReceiptRenderTask(ReceiptRenderPayload{OrderID: payload.OrderID, StoreID: n.StoreID})
	if err != nil {
		return err
	}
	if _, err := n.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue receipt render: %w", err)
	}
	return nil
}
