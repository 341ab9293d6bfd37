package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	// 各テストで新しいレジストリを使用
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.RegistrationsTotal)
	assert.NotNil(t, m.PaymentDecisionsTotal)
	assert.NotNil(t, m.TeamsFinalizedTotal)
	assert.NotNil(t, m.DistributedLockDuration)
	assert.NotNil(t, m.NotificationsTotal)
}

func TestHTTPRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/events", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/events/:id/registrations", "201").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/events/:id/registrations", "409").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
			assert.Equal(t, 3, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "http_requests_total metric not found")
}

func TestRecordHelpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordRegistration("success")
	m.RecordRegistration("success")
	m.RecordRegistration("full")
	m.RecordPaymentDecision("approve", "insufficient_stock")
	m.RecordTeamFinalized()
	m.RecordNotification("ticket_issued", "delivered")
	m.RecordNotification("ticket_issued", "dead")
	m.RecordFeedback(5)
	m.ObserveLock("acquire", "success", 15*time.Millisecond)
	m.ObserveHTTP("POST", "/api/v1/teams/join/:code", 409, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/teams/join/:code", "409")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentDecisionsTotal.WithLabelValues("approve", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TeamsFinalizedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("ticket_issued", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("ticket_issued", "dead")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackTotal.WithLabelValues("5")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "distributed_lock_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found, "distributed_lock_duration_seconds metric not found")
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRegistration("success")
		m.RecordPaymentDecision("approve", "success")
		m.RecordTeamFinalized()
		m.RecordNotification("ticket_issued", "failed")
		m.RecordFeedback(3)
		m.ObserveLock("release", "success", time.Millisecond)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestInit_CreatesDefaultMetrics(t *testing.T) {
	// 既存のdefaultMetricsをバックアップ
	oldMetrics := defaultMetrics
	defer func() { defaultMetrics = oldMetrics }()

	// Initを呼ぶとデフォルトレジストリに登録するため、テストでは直接セット
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	defaultMetrics = m

	got := Get()
	assert.NotNil(t, got)
	assert.Equal(t, m, got)
}
