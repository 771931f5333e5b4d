package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/resilience"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := resilience.NewBreaker(4, 0.5, time.Minute).WithTarget("payment-test")

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, true)
	}
	for i := 0; i < 2; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}

	require.False(t, b.Allow(ctx), "breaker should be open after 50%% failures")
}

func TestBreakerHalfOpenProbeRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := resilience.NewBreaker(1, 0.5, 10*time.Millisecond).WithTarget("payment-probe")

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow(ctx), "cool-off elapsed, one probe allowed")
	b.Report(ctx, true)
	require.True(t, b.Allow(ctx), "successful probe closes the breaker")
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := resilience.NewBreaker(1, 0.5, 10*time.Millisecond).WithTarget("payment-reopen")

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))
}
