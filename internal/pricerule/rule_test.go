package pricerule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/pricerule"
)

// A Tuesday at 17:30 local time.
var tuesdayHappyHour = time.Date(2026, time.March, 3, 17, 30, 0, 0, time.UTC)

func happyHour() pricerule.Rule {
	return pricerule.Rule{
		ID:            "hh-1",
		Name:          "Happy hour",
		Kind:          pricerule.KindHappyHour,
		MultiplierBps: 8000,
		StartTime:     "16:00",
		EndTime:       "18:00",
		Days:          []time.Weekday{time.Tuesday, time.Wednesday},
		CategoryIDs:   []string{"drinks"},
		Active:        true,
	}
}

func TestEvaluateAppliesMatchingRule(t *testing.T) {
	t.Parallel()

	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{happyHour()}, tuesdayHappyHour)
	require.Equal(t, money.Money(800), res.Price)
	require.Equal(t, "hh-1", res.AppliedRuleID)
}

func TestEvaluateOutsideWindowPassesThrough(t *testing.T) {
	t.Parallel()

	afterHours := time.Date(2026, time.March, 3, 18, 1, 0, 0, time.UTC)
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{happyHour()}, afterHours)
	require.Equal(t, money.Money(1000), res.Price)
	require.Empty(t, res.AppliedRuleID)
}

func TestEvaluateWindowIsInclusiveBothEnds(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	for _, hm := range []time.Time{
		time.Date(2026, time.March, 3, 16, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 18, 0, 0, 0, time.UTC),
	} {
		res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{rule}, hm)
		require.Equal(t, money.Money(800), res.Price, "at %s", hm.Format("15:04"))
	}
}

func TestEvaluateRespectsDayAndScope(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC)
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{happyHour()}, monday)
	require.Equal(t, money.Money(1000), res.Price)

	res = pricerule.Evaluate(1000, "burger", "food", []pricerule.Rule{happyHour()}, tuesdayHappyHour)
	require.Equal(t, money.Money(1000), res.Price)
}

func TestEvaluateEmptyDaysMatchesEveryDay(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	rule.Days = nil

	monday := time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC)
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{rule}, monday)
	require.Equal(t, money.Money(800), res.Price)
	require.Equal(t, "hh-1", res.AppliedRuleID)
}

func TestEvaluateItemScopeWins(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	rule.CategoryIDs = nil
	rule.ItemIDs = []string{"beer"}

	res := pricerule.Evaluate(1000, "beer", "", []pricerule.Rule{rule}, tuesdayHappyHour)
	require.Equal(t, money.Money(800), res.Price)

	res = pricerule.Evaluate(1000, "wine", "", []pricerule.Rule{rule}, tuesdayHappyHour)
	require.Equal(t, money.Money(1000), res.Price)
}

func TestEvaluateFirstMatchWinsNoStacking(t *testing.T) {
	t.Parallel()

	surge := pricerule.Rule{
		ID:            "surge-1",
		Kind:          pricerule.KindSurge,
		MultiplierBps: 12000,
		StartTime:     "00:00",
		EndTime:       "23:59",
		Days:          []time.Weekday{time.Tuesday},
		Active:        true,
	}
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{happyHour(), surge}, tuesdayHappyHour)
	require.Equal(t, money.Money(800), res.Price)
	require.Equal(t, "hh-1", res.AppliedRuleID)

	res = pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{surge, happyHour()}, tuesdayHappyHour)
	require.Equal(t, money.Money(1200), res.Price)
	require.Equal(t, "surge-1", res.AppliedRuleID)
}

func TestEvaluateInactiveRuleSkipped(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	rule.Active = false
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{rule}, tuesdayHappyHour)
	require.Equal(t, money.Money(1000), res.Price)
}

func TestEvaluateZeroMultiplierFloorsAtZero(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	rule.MultiplierBps = 0
	res := pricerule.Evaluate(1000, "beer", "drinks", []pricerule.Rule{rule}, tuesdayHappyHour)
	require.Equal(t, money.Money(0), res.Price)
	require.Equal(t, "hh-1", res.AppliedRuleID)
}

func TestEvaluateUnitMultiplierIsNoOp(t *testing.T) {
	t.Parallel()

	rule := happyHour()
	rule.MultiplierBps = 10000
	res := pricerule.Evaluate(999, "beer", "drinks", []pricerule.Rule{rule}, tuesdayHappyHour)
	require.Equal(t, money.Money(999), res.Price)
}
