// Package loyalty derives customer tiers and progress from accumulated
// points.
package loyalty

import (
	"github.com/mossline/pos-engine/internal/money"
)

// Tier is a loyalty-program rank.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Config carries the program parameters. Thresholds are ascending minimum
// point totals; multipliers are basis points applied to base earning
// (10000 = 1x).
type Config struct {
	PointsPerDollar    int64
	RedemptionRateBps  int64 // minor units granted per point, in bps (10000 = one cent per point)
	SilverMin          int64
	GoldMin            int64
	PlatinumMin        int64
	BronzeMultiplier   int64
	SilverMultiplier   int64
	GoldMultiplier     int64
	PlatinumMultiplier int64
}

// TierFor maps total points earned to a tier by comparing against the
// ascending thresholds; anything below SilverMin is bronze. A threshold
// of zero grants that tier to every customer; config loading enforces
// strictly positive ascending thresholds, so zero only appears in
// hand-built configs that want it.
func TierFor(totalPointsEarned int64, cfg Config) Tier {
	switch {
	case totalPointsEarned >= cfg.PlatinumMin:
		return TierPlatinum
	case totalPointsEarned >= cfg.GoldMin:
		return TierGold
	case totalPointsEarned >= cfg.SilverMin:
		return TierSilver
	default:
		return TierBronze
	}
}

// ProgressToNextTier reports 0..100 percent progress from the current tier
// threshold to the next. Platinum is terminal and always reports 100, as
// do misconfigured thresholds where next <= current.
func ProgressToNextTier(totalPointsEarned int64, tier Tier, cfg Config) int {
	var current, next int64
	switch tier {
	case TierBronze:
		current, next = 0, cfg.SilverMin
	case TierSilver:
		current, next = cfg.SilverMin, cfg.GoldMin
	case TierGold:
		current, next = cfg.GoldMin, cfg.PlatinumMin
	default:
		return 100
	}
	if next <= current {
		return 100
	}
	span := next - current
	gained := totalPointsEarned - current
	if gained <= 0 {
		return 0
	}
	if gained >= span {
		return 100
	}
	// half-up, matching the money package's rounding
	return int((200*gained + span) / (2 * span))
}

// Multiplier returns the earning multiplier for a tier in basis points.
func Multiplier(tier Tier, cfg Config) int64 {
	var m int64
	switch tier {
	case TierSilver:
		m = cfg.SilverMultiplier
	case TierGold:
		m = cfg.GoldMultiplier
	case TierPlatinum:
		m = cfg.PlatinumMultiplier
	default:
		m = cfg.BronzeMultiplier
	}
	if m <= 0 {
		return 10000
	}
	return m
}

// PointsEarned computes the points accrued for a payment. Earning is based
// on whole dollars spent, scaled by the customer's current tier multiplier
// with half-up rounding.
func PointsEarned(spend money.Money, tier Tier, cfg Config) int64 {
	if spend <= 0 || cfg.PointsPerDollar <= 0 {
		return 0
	}
	base := (spend / 100) * cfg.PointsPerDollar
	return money.Percent(base, Multiplier(tier, cfg))
}

// RedemptionValue converts a point balance into minor units at the
// configured redemption rate.
func RedemptionValue(points int64, cfg Config) money.Money {
	if points <= 0 || cfg.RedemptionRateBps <= 0 {
		return 0
	}
	return money.Percent(points, cfg.RedemptionRateBps)
}
