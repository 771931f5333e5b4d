// Package pricerule evaluates time and day scoped price multiplier rules
// (happy hour, surge, off peak) against catalog prices.
package pricerule

import (
	"time"

	"github.com/mossline/pos-engine/internal/money"
)

// Kind classifies a pricing rule.
type Kind string

const (
	KindHappyHour Kind = "happy_hour"
	KindSurge     Kind = "surge"
	KindOffPeak   Kind = "off_peak"
	KindSeasonal  Kind = "seasonal"
	KindCustom    Kind = "custom"
)

// Rule is a time-windowed multiplier applied to base item prices.
// MultiplierBps expresses the multiplier in basis points: 8000 is a 20%
// discount, 12500 a 25% surcharge. Empty scope slices match everything:
// no Days means every day, no CategoryIDs/ItemIDs means every item.
type Rule struct {
	ID            string
	Name          string
	Kind          Kind
	MultiplierBps int64
	StartTime     string // "HH:MM", inclusive
	EndTime       string // "HH:MM", inclusive
	Days          []time.Weekday
	CategoryIDs   []string
	ItemIDs       []string
	Active        bool
}

// Result reports the effective price and the rule that produced it, if any.
type Result struct {
	Price         money.Money
	AppliedRuleID string
}

// Matches reports whether the rule applies to the given item at the given
// instant. The time window is inclusive at both ends.
func (r Rule) Matches(itemID, categoryID string, now time.Time) bool {
	if !r.Active || r.MultiplierBps < 0 {
		return false
	}
	if !containsDay(r.Days, now.Weekday()) {
		return false
	}
	nowHM := now.Format("15:04")
	if r.StartTime != "" && nowHM < r.StartTime {
		return false
	}
	if r.EndTime != "" && nowHM > r.EndTime {
		return false
	}
	if len(r.ItemIDs) > 0 && !containsString(r.ItemIDs, itemID) {
		return false
	}
	if len(r.CategoryIDs) > 0 && !containsString(r.CategoryIDs, categoryID) {
		return false
	}
	return true
}

// Evaluate resolves the effective price for an item. Rules are not
// combined: the first rule in list order that matches wins. With no match
// the base price passes through unchanged. The result is floored at zero.
func Evaluate(base money.Money, itemID, categoryID string, rules []Rule, now time.Time) Result {
	for _, r := range rules {
		if !r.Matches(itemID, categoryID, now) {
			continue
		}
		price := money.Percent(base, r.MultiplierBps)
		if price < 0 {
			price = 0
		}
		return Result{Price: price, AppliedRuleID: r.ID}
	}
	return Result{Price: base}
}

func containsDay(days []time.Weekday, d time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
