package tip_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/tip"
)

func TestFromPercent(t *testing.T) {
	t.Parallel()

	require.Equal(t, money.Money(1800), tip.FromPercent(10000, 18))
	require.Equal(t, money.Money(0), tip.FromPercent(10000, 0))
	require.Equal(t, money.Money(0), tip.FromPercent(0, 20))
	// 15% of 6.65 = 0.9975 -> 1.00 half-up.
	require.Equal(t, money.Money(100), tip.FromPercent(665, 15))
}

func TestCustomClampsNegative(t *testing.T) {
	t.Parallel()

	require.Equal(t, money.Money(0), tip.Custom(-500))
	require.Equal(t, money.Money(500), tip.Custom(500))
}

func TestSelectionBasesAreMutuallyExclusive(t *testing.T) {
	t.Parallel()

	s := tip.DefaultSelection(tip.Config{Presets: []int{15, 18, 20, 25}, DefaultPercent: 18})
	require.Equal(t, 18, s.Percent)
	require.Nil(t, s.Custom)

	s = s.EnterCustom(700)
	require.Zero(t, s.Percent)
	require.NotNil(t, s.Custom)
	require.Equal(t, money.Money(700), s.Amount(10000))

	s = s.SelectPreset(20)
	require.Nil(t, s.Custom)
	require.Equal(t, money.Money(2000), s.Amount(10000))
}

func TestDefaultSelectionFallsBackToFirstPreset(t *testing.T) {
	t.Parallel()

	s := tip.DefaultSelection(tip.Config{Presets: []int{15, 18}})
	require.Equal(t, 15, s.Percent)

	s = tip.DefaultSelection(tip.Config{})
	require.Zero(t, s.Percent)
	require.Equal(t, money.Money(0), s.Amount(10000))
}

func TestSplitCheckTipUsesSelectedSubtotalOnly(t *testing.T) {
	t.Parallel()

	full := money.Money(10000)
	selected := money.Money(3500)
	s := tip.Selection{Percent: 20}

	require.Equal(t, money.Money(700), s.Amount(selected))
	require.NotEqual(t, s.Amount(full), s.Amount(selected))
}
