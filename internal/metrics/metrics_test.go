package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRegistryIsolation(t *testing.T) {
	// Two registries must not collide on metric registration.
	a := NewRegistry()
	b := NewRegistry()

	a.GateBlocks.WithLabelValues("trend", "no_direction").Inc()
	assert.Equal(t, 1.0, counterValue(t, a.GateBlocks.WithLabelValues("trend", "no_direction")))
	assert.Equal(t, 0.0, counterValue(t, b.GateBlocks.WithLabelValues("trend", "no_direction")))
}

func TestObserveEvaluation(t *testing.T) {
	m := NewRegistry()
	m.ObserveEvaluation("4h", "PASS", 25*time.Millisecond)
	m.ObserveEvaluation("4h", "HARD_BLOCK", 5*time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m.Evaluations.WithLabelValues("4h", "PASS")))
	assert.Equal(t, 1.0, counterValue(t, m.Evaluations.WithLabelValues("4h", "HARD_BLOCK")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewRegistry()
	m.SignalsEmitted.WithLabelValues("1h", "LONG").Inc()
	m.OpenPositions.Set(3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "trendgate_signals_total")
	assert.Contains(t, body, "trendgate_open_positions 3")
}
