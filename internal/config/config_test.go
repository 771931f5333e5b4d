package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/pos_test",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, []int{15, 18, 20}, cfg.TipPresets)
	require.Equal(t, 18, cfg.TipDefault)
	require.True(t, cfg.TipAllowCustom)
	require.Equal(t, int64(10), cfg.Loyalty.PointsPerDollar)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 30*time.Second, cfg.BreakerOpenFor)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadParsesTipPresets(t *testing.T) {
	env := baseEnv()
	env["TIP_PRESETS"] = "10, 12,15"
	env["TIP_DEFAULT"] = "12"
	env["TIP_ALLOW_CUSTOM"] = "false"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, []int{10, 12, 15}, cfg.TipPresets)

	tips := cfg.Tip()
	require.Equal(t, 12, tips.DefaultPercent)
	require.False(t, tips.AllowCustom)
}

func TestLoadRejectsNegativeTax(t *testing.T) {
	env := baseEnv()
	env["TAX_BPS"] = "-100"
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRejectsBadLoyaltyThresholds(t *testing.T) {
	for name, overrides := range map[string]map[string]string{
		"zero silver":       {"LOYALTY_SILVER_MIN": "0"},
		"gold below silver": {"LOYALTY_GOLD_MIN": "500"},
		"platinum at gold":  {"LOYALTY_PLATINUM_MIN": "5000"},
	} {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range overrides {
				env[k] = v
			}
			_, err := LoadForTests(env)
			require.Error(t, err)
		})
	}
}
