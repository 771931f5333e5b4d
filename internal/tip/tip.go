// Package tip computes gratuity amounts for staff-facing and guest-facing
// (scan-to-pay) flows.
package tip

import "github.com/mossline/pos-engine/internal/money"

// Config drives the tip UI: ordered preset percentages and whether a
// custom amount is allowed. DefaultPercent selects the preset active
// before any user interaction; 0 falls back to the first preset.
type Config struct {
	Presets        []int
	DefaultPercent int
	AllowCustom    bool
}

// FromPercent computes a percentage-of-subtotal tip, rounded half-up on
// the cent. Negative inputs yield 0.
func FromPercent(subtotal money.Money, percent int) money.Money {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	return money.Percent(subtotal, int64(percent)*100)
}

// Custom normalises an explicit tip entry; negative entries clamp to 0
// rather than propagating.
func Custom(amount money.Money) money.Money {
	if amount < 0 {
		return 0
	}
	return amount
}

// Selection is the tip basis chosen by the payer. Exactly one basis is
// active at a time: selecting a preset clears any custom amount and
// entering a custom amount clears the preset.
type Selection struct {
	Percent int          `json:"percent,omitempty"`
	Custom  *money.Money `json:"custom,omitempty"`
}

// DefaultSelection returns the preset active before user interaction.
func DefaultSelection(cfg Config) Selection {
	if cfg.DefaultPercent > 0 {
		return Selection{Percent: cfg.DefaultPercent}
	}
	if len(cfg.Presets) > 0 {
		return Selection{Percent: cfg.Presets[0]}
	}
	return Selection{}
}

// SelectPreset activates a percentage basis, clearing any custom amount.
func (s Selection) SelectPreset(percent int) Selection {
	if percent < 0 {
		percent = 0
	}
	return Selection{Percent: percent}
}

// EnterCustom activates a custom-amount basis, clearing the preset.
func (s Selection) EnterCustom(amount money.Money) Selection {
	a := Custom(amount)
	return Selection{Custom: &a}
}

// Amount resolves the tip for the given base subtotal. For split checks
// the caller passes the guest-selected subtotal, not the full check.
func (s Selection) Amount(subtotal money.Money) money.Money {
	if s.Custom != nil {
		return Custom(*s.Custom)
	}
	return FromPercent(subtotal, s.Percent)
}
