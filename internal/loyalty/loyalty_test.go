package loyalty_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/loyalty"
	"github.com/mossline/pos-engine/internal/money"
)

func programConfig() loyalty.Config {
	return loyalty.Config{
		PointsPerDollar:    10,
		RedemptionRateBps:  10000, // one cent per point; 100 points = 1.00
		SilverMin:          1000,
		GoldMin:            5000,
		PlatinumMin:        10000,
		BronzeMultiplier:   10000,
		SilverMultiplier:   11000,
		GoldMultiplier:     12500,
		PlatinumMultiplier: 15000,
	}
}

func TestTierForThresholds(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	cases := []struct {
		points int64
		want   loyalty.Tier
	}{
		{0, loyalty.TierBronze},
		{999, loyalty.TierBronze},
		{1000, loyalty.TierSilver},
		{4999, loyalty.TierSilver},
		{5000, loyalty.TierGold},
		{9999, loyalty.TierGold},
		{10000, loyalty.TierPlatinum},
		{50000, loyalty.TierPlatinum},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, loyalty.TierFor(tc.points, cfg), "points %d", tc.points)
	}
}

func TestTierForZeroThresholdGrantsTier(t *testing.T) {
	t.Parallel()

	// A program that starts everyone at silver sets SilverMin to 0.
	cfg := programConfig()
	cfg.SilverMin = 0
	require.Equal(t, loyalty.TierSilver, loyalty.TierFor(0, cfg))
	require.Equal(t, loyalty.TierSilver, loyalty.TierFor(999, cfg))
	require.Equal(t, loyalty.TierGold, loyalty.TierFor(5000, cfg))
}

func TestTierForIsMonotonic(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	rank := map[loyalty.Tier]int{
		loyalty.TierBronze:   0,
		loyalty.TierSilver:   1,
		loyalty.TierGold:     2,
		loyalty.TierPlatinum: 3,
	}
	prev := -1
	for points := int64(0); points <= 12000; points += 250 {
		r := rank[loyalty.TierFor(points, cfg)]
		require.GreaterOrEqual(t, r, prev, "tier regressed at %d points", points)
		prev = r
	}
}

func TestProgressToNextTier(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	require.Equal(t, 0, loyalty.ProgressToNextTier(0, loyalty.TierBronze, cfg))
	require.Equal(t, 50, loyalty.ProgressToNextTier(500, loyalty.TierBronze, cfg))
	require.Equal(t, 25, loyalty.ProgressToNextTier(2000, loyalty.TierSilver, cfg))
	require.Equal(t, 100, loyalty.ProgressToNextTier(123456, loyalty.TierPlatinum, cfg))
}

func TestProgressRoundsHalfUp(t *testing.T) {
	t.Parallel()

	// 2 of 3 points is 66.67%, which rounds up, not down.
	cfg := loyalty.Config{SilverMin: 3, GoldMin: 6, PlatinumMin: 9}
	require.Equal(t, 67, loyalty.ProgressToNextTier(2, loyalty.TierBronze, cfg))
	require.Equal(t, 33, loyalty.ProgressToNextTier(1, loyalty.TierBronze, cfg))

	// Rounding may report 100 a whisker under the threshold; tier
	// advancement still keys off TierFor, not the display value.
	big := programConfig()
	require.Equal(t, 100, loyalty.ProgressToNextTier(999, loyalty.TierBronze, big))
	require.Equal(t, 99, loyalty.ProgressToNextTier(994, loyalty.TierBronze, big))
}

func TestProgressClampsAndHandlesMisconfiguration(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	require.Equal(t, 100, loyalty.ProgressToNextTier(99999, loyalty.TierGold, cfg))

	broken := cfg
	broken.GoldMin = broken.SilverMin // next <= current
	require.Equal(t, 100, loyalty.ProgressToNextTier(1500, loyalty.TierSilver, broken))
}

func TestPointsEarnedUsesTierMultiplier(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	// 45.00 spend, 10 pts/dollar: bronze 450, platinum 675.
	require.Equal(t, int64(450), loyalty.PointsEarned(4500, loyalty.TierBronze, cfg))
	require.Equal(t, int64(675), loyalty.PointsEarned(4500, loyalty.TierPlatinum, cfg))
	require.Equal(t, int64(0), loyalty.PointsEarned(0, loyalty.TierGold, cfg))
}

func TestRedemptionValue(t *testing.T) {
	t.Parallel()

	cfg := programConfig()
	require.Equal(t, money.Money(100), loyalty.RedemptionValue(100, cfg))
	require.Equal(t, money.Money(0), loyalty.RedemptionValue(-5, cfg))
}
