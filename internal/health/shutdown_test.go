package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/health"
)

type healthyChecker struct{}

func (healthyChecker) PingDB(context.Context, time.Duration) error    { return nil }
func (healthyChecker) PingRedis(context.Context, time.Duration) error { return nil }

// Draining flips the gate off so the balancer stops sending checkouts;
// readiness must track the gate even while dependencies stay healthy.
func TestReadinessGateClosesDuringDrain(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })

	handler := health.Handler{Checker: healthyChecker{}}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	health.SetReady(true)
	before := httptest.NewRecorder()
	handler.Ready(before, req)
	require.Equal(t, http.StatusOK, before.Code)

	health.SetReady(false)
	draining := httptest.NewRecorder()
	handler.Ready(draining, req)
	require.Equal(t, http.StatusServiceUnavailable, draining.Code)
}
