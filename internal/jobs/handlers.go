package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/events"
	"github.com/mossline/pos-engine/internal/lock"
	"github.com/mossline/pos-engine/internal/loyalty"
	"github.com/mossline/pos-engine/internal/order"
	"github.com/mossline/pos-engine/internal/receipt"
)

// AccountStore is the loyalty persistence the accrual handler needs.
type AccountStore interface {
	Get(ctx context.Context, customerID string) (loyalty.Account, error)
	Accrue(ctx context.Context, customerID string, points int64) (loyalty.Account, error)
}

// Emitter publishes follow-up domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// LoyaltyHandler converts captured spend into points. Accrual per customer
// is serialised with a Redis lock so concurrent orders never double-count
// the tier multiplier.
type LoyaltyHandler struct {
	Accounts AccountStore
	Config   loyalty.Config
	Locker   lock.Locker
	LockTTL  time.Duration
	Events   Emitter
	Logger   zerolog.Logger
}

// ProcessTask implements asynq.Handler for loyalty:accrue tasks.
func (h *LoyaltyHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p LoyaltyAccruePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode loyalty payload: %w", err)
	}
	if p.CustomerID == "" || p.Spend <= 0 {
		return nil
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return h.Locker.WithLock(ctx, lock.Key("loyalty", p.CustomerID), ttl, func(ctx context.Context) error {
		account, err := h.Accounts.Get(ctx, p.CustomerID)
		if err != nil && !errors.Is(err, loyalty.ErrAccountNotFound) {
			return fmt.Errorf("load loyalty account: %w", err)
		}
		tier := loyalty.TierFor(account.TotalPointsEarned, h.Config)
		points := loyalty.PointsEarned(p.Spend, tier, h.Config)
		if points <= 0 {
			return nil
		}
		updated, err := h.Accounts.Accrue(ctx, p.CustomerID, points)
		if err != nil {
			return fmt.Errorf("accrue points: %w", err)
		}
		if h.Events != nil {
			_, emitErr := h.Events.Emit(ctx, events.TopicLoyaltyAccrued, p.OrderID, map[string]any{
				"orderId":    p.OrderID,
				"customerId": p.CustomerID,
				"points":     points,
				"tier":       loyalty.TierFor(updated.TotalPointsEarned, h.Config),
			})
			if emitErr != nil {
				h.Logger.Error().Err(emitErr).Str("order_id", p.OrderID).Msg("emit loyalty event")
			}
		}
		h.Logger.Info().Str("customer_id", p.CustomerID).Int64("points", points).Str("tier", string(tier)).Msg("loyalty accrued")
		return nil
	})
}

// OrderSource loads captured orders for rendering.
type OrderSource interface {
	Get(ctx context.Context, storeID, orderID string) (order.Order, error)
}

// ReceiptHandler renders the PDF receipt and optionally emails a summary.
type ReceiptHandler struct {
	Orders    OrderSource
	Receipts  *receipt.Store
	Mail      common.EmailSender
	StoreName string
	Logger    zerolog.Logger
}

// ProcessTask implements asynq.Handler for receipt:render tasks.
func (h *ReceiptHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p ReceiptRenderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode receipt payload: %w", err)
	}
	o, err := h.Orders.Get(ctx, p.StoreID, p.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", p.OrderID, err)
	}
	pdf, err := receipt.Render(h.StoreName, o)
	if err != nil {
		return err
	}
	if err := h.Receipts.Save(ctx, p.StoreID, p.OrderID, pdf); err != nil {
		return fmt.Errorf("store receipt: %w", err)
	}
	if h.Mail != nil && p.Email != "" {
		subject := fmt.Sprintf("Your receipt from %s", h.StoreName)
		body := fmt.Sprintf("<p>Thanks for your visit. Receipt %s is attached to your account.</p>", o.ReceiptNumber)
		if err := h.Mail.Send(p.Email, subject, body); err != nil {
			h.Logger.Error().Err(err).Str("order_id", p.OrderID).Msg("send receipt email")
		}
	}
	h.Logger.Info().Str("order_id", p.OrderID).Int("bytes", len(pdf)).Msg("receipt rendered")
	return nil
}

// NewMux wires the task handlers into an asynq mux.
func NewMux(loyaltyHandler *LoyaltyHandler, receiptHandler *ReceiptHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if loyaltyHandler != nil {
		mux.Handle(TypeLoyaltyAccrue, loyaltyHandler)
	}
	if receiptHandler != nil {
		mux.Handle(TypeReceiptRender, receiptHandler)
	}
	return mux
}
