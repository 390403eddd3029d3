package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCountersAccumulate(t *testing.T) {
	m := New()
	m.Reservation("confirmed")
	m.Reservation("confirmed")
	m.Reservation("payment_failed")
	m.Payment("PayPal", "declined")
	m.ChargingSession("paid")
	m.SweepReleased(3)
	m.SweepReleased(0)
	m.Observe("make_reservation", time.Now())

	body := scrape(t, m)
	assert.Contains(t, body, `smartpark_reservations_total{outcome="confirmed"} 2`)
	assert.Contains(t, body, `smartpark_reservations_total{outcome="payment_failed"} 1`)
	assert.Contains(t, body, `smartpark_payments_total{method="PayPal",outcome="declined"} 1`)
	assert.Contains(t, body, `smartpark_charging_sessions_total{event="paid"} 1`)
	assert.Contains(t, body, `smartpark_sweep_released_total 3`)
	assert.Contains(t, body, `smartpark_operation_duration_seconds_count{operation="make_reservation"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Reservation("confirmed")
		m.Payment("Credit Card", "approved")
		m.ChargingSession("stopped")
		m.SweepReleased(1)
		m.Observe("sweep", time.Now())
	})
}
