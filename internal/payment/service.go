package payment

import (
	"context"
	"errors"

	"github.com/mossline/pos-engine/internal/obs"
	"github.com/mossline/pos-engine/internal/resilience"
)

// ErrDeclined is the generic user-facing failure. The underlying cause is
// logged at the call boundary, never surfaced to the guest.
var ErrDeclined = errors.New("payment could not be processed")

// Service wraps the provider with the circuit breaker and failure
// normalisation. A transport error, an open breaker and a processor
// decline all surface as ErrDeclined; the cart is left intact either way.
type Service struct {
	Provider Provider
	Breaker  *resilience.Breaker
}

// Charge dispatches a charge. Once dispatched the payment cannot be
// cancelled; callers await the outcome.
func (s *Service) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if s == nil || s.Provider == nil {
		return ChargeResult{}, errors.New("payment service not configured")
	}
	if req.Amount <= 0 {
		return ChargeResult{}, ErrDeclined
	}
	if s.Breaker != nil && !s.Breaker.Allow(ctx) {
		obs.CountPaymentFailure("circuit_open")
		return ChargeResult{}, ErrDeclined
	}
	res, err := s.Provider.Charge(ctx, req)
	if err != nil {
		if s.Breaker != nil {
			s.Breaker.Report(ctx, false)
		}
		obs.CountPaymentFailure("transport")
		return ChargeResult{}, ErrDeclined
	}
	if s.Breaker != nil {
		s.Breaker.Report(ctx, true)
	}
	if !res.Success {
		obs.CountPaymentFailure("declined")
		return res, ErrDeclined
	}
	obs.CountPaymentCaptured()
	return res, nil
}
