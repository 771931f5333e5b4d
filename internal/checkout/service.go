package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/events"
	"github.com/mossline/pos-engine/internal/obs"
	"github.com/mossline/pos-engine/internal/order"
	"github.com/mossline/pos-engine/internal/payment"
	"github.com/mossline/pos-engine/internal/pricing"
	"github.com/mossline/pos-engine/internal/shipping"
	"github.com/mossline/pos-engine/internal/tip"
)

// MethodSource resolves shipping methods selected during checkout.
type MethodSource interface {
	Get(ctx context.Context, storeID, methodID string) (shipping.Method, error)
}

// Charger dispatches a payment and reports the outcome.
type Charger interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
}

// OrderStore persists captured orders.
type OrderStore interface {
	Create(ctx context.Context, o order.Order) error
}

// Emitter publishes domain events after capture.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service orchestrates checkout sessions: guards, totals, submission and
// the post-capture bookkeeping.
type Service struct {
	Sessions *Store
	Carts    *cart.Store
	Methods  MethodSource
	Payments Charger
	Orders   OrderStore
	Events   Emitter
	Tips     tip.Config
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Totals computes the live summary for a session: the full check for retail
// and register flows, the selected portion for a guest paying part of a
// check. The summary is advisory until Submit freezes it.
func (s *Service) Totals(ctx context.Context, sess Session) (pricing.Summary, error) {
	c, err := s.loadCart(ctx, sess)
	if err != nil {
		return pricing.Summary{}, err
	}
	return s.totals(ctx, sess, c)
}

func (s *Service) totals(ctx context.Context, sess Session, c cart.Cart) (pricing.Summary, error) {
	if sess.Flow == FlowGuest && len(sess.SelectedLines) > 0 {
		selected := selectLines(c, sess.SelectedLines)
		tipAmount := sess.Tip.Amount(cart.Cart{Lines: selected, TaxBps: c.TaxBps}.Subtotal())
		return pricing.ComputeSplit(c, selected, tipAmount), nil
	}

	var method *shipping.Method
	if sess.Fulfillment == cart.OrderTypeShip && sess.ShippingMethodID != "" {
		if s.Methods == nil {
			return pricing.Summary{}, errors.New("shipping methods not configured")
		}
		m, err := s.Methods.Get(ctx, sess.StoreID, sess.ShippingMethodID)
		if err != nil {
			return pricing.Summary{}, fmt.Errorf("resolve shipping method: %w", err)
		}
		method = &m
	}
	shipCart := c.WithOrderType(sess.Fulfillment)
	tipAmount := sess.Tip.Amount(shipCart.Subtotal())
	return pricing.Compute(shipCart, method, tipAmount), nil
}

func (s *Service) loadCart(ctx context.Context, sess Session) (cart.Cart, error) {
	if s == nil || s.Carts == nil {
		return cart.Cart{}, errors.New("checkout service not configured")
	}
	c, err := s.Carts.Load(ctx, sess.StoreID, sess.CartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return cart.New(0), nil
		}
		return cart.Cart{}, err
	}
	return c, nil
}

func selectLines(c cart.Cart, refs []LineRef) []cart.LineItem {
	out := make([]cart.LineItem, 0, len(refs))
	for _, ref := range refs {
		if line, ok := c.FindLine(ref.ItemID, ref.VariationID); ok {
			out = append(out, line)
		}
	}
	return out
}

// SubmitResult reports the outcome of a submission attempt.
type SubmitResult struct {
	Session Session         `json:"session"`
	Summary pricing.Summary `json:"summary,omitempty"`
	OrderID string          `json:"orderId,omitempty"`
	Receipt string          `json:"receiptNumber,omitempty"`
}

// Submit freezes the session totals, charges the payment and, on success,
// persists the order and clears the paid portion of the cart. On decline the
// session parks in the failed state and the cart is left intact; retry is an
// explicit Reset, never automatic.
func (s *Service) Submit(ctx context.Context, sess Session, paymentNonce string) (SubmitResult, Decision, error) {
	if s == nil || s.Sessions == nil || s.Payments == nil || s.Orders == nil {
		return SubmitResult{}, Decision{}, errors.New("checkout service not configured")
	}
	c, err := s.loadCart(ctx, sess)
	if err != nil {
		return SubmitResult{}, Decision{}, err
	}
	if d := sess.CanSubmit(c); !d.OK {
		return SubmitResult{Session: sess}, d, nil
	}

	summary, err := s.totals(ctx, sess, c)
	if err != nil {
		return SubmitResult{}, Decision{}, err
	}

	sess = sess.freeze(summary)
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return SubmitResult{}, Decision{}, fmt.Errorf("persist frozen session: %w", err)
	}

	req := payment.ChargeRequest{
		OrderToken:         sess.ID,
		Amount:             summary.Total,
		TipAmount:          summary.Tip,
		PaymentMethodNonce: paymentNonce,
	}
	for _, ref := range sess.SelectedLines {
		req.SelectedItemIDs = append(req.SelectedItemIDs, ref.ItemID)
	}

	res, err := s.Payments.Charge(ctx, req)
	if err != nil {
		return s.declined(ctx, sess, err)
	}
	return s.captured(ctx, sess, c, summary, res)
}

func (s *Service) declined(ctx context.Context, sess Session, cause error) (SubmitResult, Decision, error) {
	sess = sess.fail("payment could not be completed")
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("persist failed session")
	}
	s.emit(ctx, events.TopicPaymentFailed, sess.ID, map[string]any{
		"sessionId": sess.ID,
		"flow":      sess.Flow,
	})
	obs.CountOrder(string(sess.Flow), "failed")
	s.Logger.Warn().Err(cause).Str("session_id", sess.ID).Str("flow", string(sess.Flow)).Msg("payment declined")
	return SubmitResult{Session: sess}, allow(), nil
}

func (s *Service) captured(ctx context.Context, sess Session, c cart.Cart, summary pricing.Summary, res payment.ChargeResult) (SubmitResult, Decision, error) {
	now := s.now()
	o := order.Order{
		ID:               uuid.NewString(),
		StoreID:          sess.StoreID,
		SessionID:        sess.ID,
		Flow:             string(sess.Flow),
		Status:           order.StatusPaid,
		CustomerID:       sess.CustomerID,
		CustomerName:     sess.CustomerName,
		CustomerContact:  sess.CustomerContact,
		Fulfillment:      string(sess.Fulfillment),
		TableID:          sess.TableID,
		ShippingMethodID: sess.ShippingMethodID,
		Pricing:          summary,
		Currency:         s.Currency,
		ReceiptNumber:    res.ReceiptNumber,
		CreatedAt:        now.UTC(),
	}
	if sess.Address != nil {
		o.Address = &order.Address{
			Name:       sess.Address.Name,
			Line1:      sess.Address.Line1,
			Line2:      sess.Address.Line2,
			City:       sess.Address.City,
			State:      sess.Address.State,
			PostalCode: sess.Address.PostalCode,
		}
	}
	paid := c.Lines
	if sess.Flow == FlowGuest && len(sess.SelectedLines) > 0 {
		paid = selectLines(c, sess.SelectedLines)
	}
	for _, l := range paid {
		o.Lines = append(o.Lines, order.Line{
			ItemID:      l.ItemID,
			VariationID: l.VariationID,
			Name:        l.Name,
			Quantity:    l.Quantity,
			Weight:      l.Weight,
			UnitPrice:   l.EffectiveUnitPrice(),
			Discount:    l.Discount,
			Total:       l.Total(),
		})
	}

	if err := s.Orders.Create(ctx, o); err != nil && !errors.Is(err, order.ErrDuplicateSession) {
		// Money moved but the order did not persist. Park the session so
		// staff can reconcile against the processor receipt.
		sess = sess.fail("order could not be recorded; contact staff")
		if saveErr := s.Sessions.Save(ctx, sess); saveErr != nil {
			s.Logger.Error().Err(saveErr).Str("session_id", sess.ID).Msg("persist failed session")
		}
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Str("receipt", res.ReceiptNumber).Msg("order persist failed after capture")
		return SubmitResult{Session: sess, Receipt: res.ReceiptNumber}, allow(), nil
	}

	if err := s.settleCart(ctx, sess, c); err != nil {
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("settle cart after capture")
	}

	sess = sess.succeed()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("persist succeeded session")
	}

	s.emit(ctx, events.TopicPaymentCaptured, o.ID, map[string]any{
		"orderId":    o.ID,
		"sessionId":  sess.ID,
		"customerId": sess.CustomerID,
		"total":      summary.Total,
		"tip":        summary.Tip,
	})
	obs.CountOrder(string(sess.Flow), "success")
	s.Logger.Info().Str("order_id", o.ID).Str("flow", string(sess.Flow)).Int64("total", summary.Total).Msg("order captured")

	return SubmitResult{Session: sess, Summary: summary, OrderID: o.ID, Receipt: res.ReceiptNumber}, allow(), nil
}

// settleCart removes the paid portion: the whole cart for retail and
// register flows, only the selected lines for a guest split payment.
func (s *Service) settleCart(ctx context.Context, sess Session, c cart.Cart) error {
	if sess.Flow == FlowGuest && len(sess.SelectedLines) > 0 {
		remaining := c
		for _, ref := range sess.SelectedLines {
			remaining = remaining.RemoveItem(ref.ItemID, ref.VariationID)
		}
		if remaining.IsEmpty() {
			return s.Carts.Delete(ctx, sess.StoreID, sess.CartID)
		}
		return s.Carts.Save(ctx, sess.StoreID, sess.CartID, remaining)
	}
	return s.Carts.Delete(ctx, sess.StoreID, sess.CartID)
}

// Cancel discards a session that has not entered payment.
func (s *Service) Cancel(ctx context.Context, sess Session) (Decision, error) {
	if s == nil || s.Sessions == nil {
		return Decision{}, errors.New("checkout service not configured")
	}
	if d := sess.CanCancel(); !d.OK {
		return d, nil
	}
	if err := s.Sessions.Delete(ctx, sess); err != nil {
		return Decision{}, fmt.Errorf("delete session: %w", err)
	}
	return allow(), nil
}

// Retry returns a failed session to its flow's entry point.
func (s *Service) Retry(ctx context.Context, sess Session) (Session, Decision, error) {
	if s == nil || s.Sessions == nil {
		return sess, Decision{}, errors.New("checkout service not configured")
	}
	if sess.Step != StepFailed {
		return sess, deny("session has not failed"), nil
	}
	sess = sess.Reset()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return sess, Decision{}, fmt.Errorf("persist session: %w", err)
	}
	return sess, allow(), nil
}

func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}
