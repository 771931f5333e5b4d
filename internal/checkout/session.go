// Package checkout drives the order submission state machines: the retail
// checkout, the guest scan-to-pay flow and the staff register flow.
package checkout

import (
	"strings"

	"github.com/mossline/pos-engine/internal/cart"
	"github.com/mossline/pos-engine/internal/pricing"
	"github.com/mossline/pos-engine/internal/tip"
)

// Flow identifies which state machine a session runs.
type Flow string

const (
	FlowRetail   Flow = "retail"
	FlowGuest    Flow = "guest"
	FlowRegister Flow = "register"
)

// Step is a state within a flow.
type Step string

const (
	// Retail flow.
	StepCart    Step = "cart"
	StepDetails Step = "details"
	StepConfirm Step = "confirm"

	// Guest scan-to-pay flow.
	StepCheck  Step = "check"
	StepTip    Step = "tip"
	StepPaying Step = "paying"

	// Staff register flow.
	StepIdle         Step = "idle"
	StepDiningOption Step = "dining_option"
	StepTableSelect  Step = "table_select"
	StepPayment      Step = "payment"

	// Terminal states shared by all flows.
	StepSuccess Step = "success"
	StepFailed  Step = "failed"
)

// Decision is a guard result. Guards report rather than error so the UI
// can disable affordances preemptively.
type Decision struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{OK: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Address is a shipping destination. All fields except Line2 are required
// for ship fulfillment.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Complete reports whether every required field is non-empty.
func (a Address) Complete() bool {
	for _, f := range []string{a.Name, a.Line1, a.City, a.State, a.PostalCode} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// LineRef identifies a cart line a guest has selected to pay for.
type LineRef struct {
	ItemID      string `json:"itemId"`
	VariationID string `json:"variationId,omitempty"`
}

// Session is one in-flight checkout. It is a value like the cart: every
// transition returns a new Session.
type Session struct {
	ID               string           `json:"id"`
	Flow             Flow             `json:"flow"`
	Step             Step             `json:"step"`
	StoreID          string           `json:"storeId"`
	CartID           string           `json:"cartId"`
	GuestToken       string           `json:"guestToken,omitempty"`
	CustomerID       string           `json:"customerId,omitempty"`
	CustomerName     string           `json:"customerName,omitempty"`
	CustomerContact  string           `json:"customerContact,omitempty"`
	Fulfillment      cart.OrderType   `json:"fulfillment,omitempty"`
	ShippingMethodID string           `json:"shippingMethodId,omitempty"`
	Address          *Address         `json:"address,omitempty"`
	TableID          string           `json:"tableId,omitempty"`
	Tip              tip.Selection    `json:"tip"`
	SelectedLines    []LineRef        `json:"selectedLines,omitempty"`
	Snapshot         *pricing.Summary `json:"snapshot,omitempty"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
}

// NewRetail starts a retail checkout at the cart step.
func NewRetail(id, storeID, cartID string, tipCfg tip.Config) Session {
	return Session{ID: id, Flow: FlowRetail, Step: StepCart, StoreID: storeID, CartID: cartID, Tip: tip.DefaultSelection(tipCfg)}
}

// NewGuest starts a guest scan-to-pay session against an open check.
func NewGuest(id, storeID, cartID, token string, tipCfg tip.Config) Session {
	return Session{ID: id, Flow: FlowGuest, Step: StepCheck, StoreID: storeID, CartID: cartID, GuestToken: token, Tip: tip.DefaultSelection(tipCfg)}
}

// NewRegister starts a staff register session.
func NewRegister(id, storeID, cartID string, tipCfg tip.Config) Session {
	return Session{ID: id, Flow: FlowRegister, Step: StepIdle, StoreID: storeID, CartID: cartID, Tip: tip.DefaultSelection(tipCfg)}
}

// Terminal reports whether the session has finished.
func (s Session) Terminal() bool {
	return s.Step == StepSuccess || s.Step == StepFailed
}

// CanProceedToDetails guards cart -> details: at least one line with a
// positive quantity or weight.
func (s Session) CanProceedToDetails(c cart.Cart) Decision {
	if s.Step != StepCart {
		return deny("not at cart step")
	}
	if c.IsEmpty() {
		return deny("cart is empty")
	}
	return allow()
}

// ToDetails advances a retail session past the cart step.
func (s Session) ToDetails(c cart.Cart) (Session, Decision) {
	if d := s.CanProceedToDetails(c); !d.OK {
		return s, d
	}
	s.Step = StepDetails
	return s, allow()
}

// SetCustomer records the buyer's name and contact.
func (s Session) SetCustomer(name, contact string) Session {
	s.CustomerName = strings.TrimSpace(name)
	s.CustomerContact = strings.TrimSpace(contact)
	return s
}

// SetFulfillment changes the fulfillment type. Moving away from ship
// clears the selected shipping method so a stale shipping cost is never
// charged under pickup or local delivery.
func (s Session) SetFulfillment(t cart.OrderType) Session {
	s.Fulfillment = t
	if t != cart.OrderTypeShip {
		s.ShippingMethodID = ""
	}
	return s
}

// SetShippingMethod selects a shipping method for ship fulfillment.
func (s Session) SetShippingMethod(methodID string) Session {
	s.ShippingMethodID = strings.TrimSpace(methodID)
	return s
}

// SetAddress records the shipping destination.
func (s Session) SetAddress(a Address) Session {
	s.Address = &a
	return s
}

// CanProceedToConfirm guards details -> confirm: customer name and
// contact always, plus a complete address and selected method when the
// order ships.
func (s Session) CanProceedToConfirm() Decision {
	if s.Step != StepDetails {
		return deny("not at details step")
	}
	if s.CustomerName == "" || s.CustomerContact == "" {
		return deny("customer name and contact are required")
	}
	if s.Fulfillment == cart.OrderTypeShip {
		if s.Address == nil || !s.Address.Complete() {
			return deny("complete shipping address is required")
		}
		if s.ShippingMethodID == "" {
			return deny("shipping method is required")
		}
	}
	return allow()
}

// ToConfirm advances a retail session to payment confirmation.
func (s Session) ToConfirm() (Session, Decision) {
	if d := s.CanProceedToConfirm(); !d.OK {
		return s, d
	}
	s.Step = StepConfirm
	return s, allow()
}

// SelectLines records the subset of the check a guest will pay for and
// advances the guest flow to tip selection.
func (s Session) SelectLines(c cart.Cart, refs []LineRef) (Session, Decision) {
	if s.Flow != FlowGuest {
		return s, deny("not a guest session")
	}
	if s.Step != StepCheck {
		return s, deny("not at check step")
	}
	if len(refs) == 0 {
		return s, deny("no items selected")
	}
	for _, ref := range refs {
		if _, ok := c.FindLine(ref.ItemID, ref.VariationID); !ok {
			return s, deny("selected item is not on the check")
		}
	}
	s.SelectedLines = refs
	s.Step = StepTip
	return s, allow()
}

// SelectTipPreset activates a preset percentage, clearing any custom amount.
func (s Session) SelectTipPreset(percent int) Session {
	s.Tip = s.Tip.SelectPreset(percent)
	return s
}

// EnterCustomTip activates an explicit tip amount, clearing the preset.
func (s Session) EnterCustomTip(amount int64) Session {
	s.Tip = s.Tip.EnterCustom(amount)
	return s
}

// SelectDiningOption moves a register session from idle through the
// dining-option step. Dine-in routes through table selection before
// payment; everything else goes straight to payment.
func (s Session) SelectDiningOption(t cart.OrderType) (Session, Decision) {
	if s.Flow != FlowRegister {
		return s, deny("not a register session")
	}
	if s.Step != StepIdle && s.Step != StepDiningOption {
		return s, deny("dining option already chosen")
	}
	s = s.SetFulfillment(t)
	if t == cart.OrderTypeDineIn {
		s.Step = StepTableSelect
	} else {
		s.Step = StepPayment
	}
	return s, allow()
}

// SelectTable assigns a table and moves the register session to payment.
func (s Session) SelectTable(tableID string) (Session, Decision) {
	if s.Step != StepTableSelect {
		return s, deny("not at table selection")
	}
	if strings.TrimSpace(tableID) == "" {
		return s, deny("table is required")
	}
	s.TableID = strings.TrimSpace(tableID)
	s.Step = StepPayment
	return s, allow()
}

// CanSubmit guards the hand-off to the payment collaborator.
func (s Session) CanSubmit(c cart.Cart) Decision {
	switch s.Flow {
	case FlowRetail:
		if s.Step != StepConfirm {
			return deny("not at confirmation step")
		}
	case FlowGuest:
		if s.Step != StepTip {
			return deny("tip not confirmed")
		}
		if len(s.SelectedLines) == 0 {
			return deny("no items selected")
		}
	case FlowRegister:
		if s.Step != StepPayment {
			return deny("not at payment step")
		}
	default:
		return deny("unknown flow")
	}
	if c.IsEmpty() {
		return deny("cart is empty")
	}
	return allow()
}

// freeze records the totals snapshot and moves into the paying state.
// Once here cancellation is no longer supported; the caller must await
// success or failure.
func (s Session) freeze(summary pricing.Summary) Session {
	snap := summary
	s.Snapshot = &snap
	s.Step = StepPaying
	s.ErrorMessage = ""
	return s
}

// succeed finishes the session after payment capture.
func (s Session) succeed() Session {
	s.Step = StepSuccess
	s.ErrorMessage = ""
	return s
}

// fail parks the session in the failed state with a user-displayable
// message. The cart is left intact for an explicit retry.
func (s Session) fail(message string) Session {
	s.Step = StepFailed
	s.ErrorMessage = message
	return s
}

// Reset returns a failed session to its flow's entry point for a retry.
func (s Session) Reset() Session {
	s.Snapshot = nil
	s.ErrorMessage = ""
	switch s.Flow {
	case FlowGuest:
		s.Step = StepCheck
		s.SelectedLines = nil
	case FlowRegister:
		s.Step = StepPayment
	default:
		s.Step = StepConfirm
	}
	return s
}

// CanCancel reports whether the session may still be discarded. A payment
// already dispatched cannot be cancelled.
func (s Session) CanCancel() Decision {
	if s.Step == StepPaying {
		return deny("payment in progress")
	}
	if s.Terminal() {
		return deny("session already finished")
	}
	return allow()
}
