package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, route, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, route）
	HTTPRequestDuration *prometheus.HistogramVec

	// 登録の試行数（result: success, full, conflict, rejected, error）
	RegistrationsTotal *prometheus.CounterVec

	// 支払い判定の数（decision: approve/reject, result: success, insufficient_stock, conflict, error）
	PaymentDecisionsTotal *prometheus.CounterVec

	// 目標人数に達して登録を展開したチーム数
	TeamsFinalizedTotal prometheus.Counter

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed/error）
	DistributedLockDuration *prometheus.HistogramVec

	// 通知の配信数（topic, status: delivered/failed/dead）
	NotificationsTotal *prometheus.CounterVec

	// 評価の投稿数（rating）
	FeedbackTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		PaymentDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_decisions_total",
				Help: "Total number of organizer payment decisions by outcome",
			},
			[]string{"decision", "result"},
		),
		TeamsFinalizedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teams_finalized_total",
				Help: "Total number of teams that reached their target size",
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Total number of outbox notifications relayed",
			},
			[]string{"topic", "status"},
		),
		FeedbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_total",
				Help: "Total number of feedback submissions by rating",
			},
			[]string{"rating"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RegistrationsTotal,
		m.PaymentDecisionsTotal,
		m.TeamsFinalizedTotal,
		m.DistributedLockDuration,
		m.NotificationsTotal,
		m.FeedbackTotal,
	)

	return m
}

// ObserveHTTP はHTTPリクエストの件数と処理時間を記録する
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRegistration は登録結果を記録する。m が nil なら何もしない
func (m *Metrics) RecordRegistration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

// RecordPaymentDecision は支払い判定の結果を記録する
func (m *Metrics) RecordPaymentDecision(decision, result string) {
	if m == nil {
		return
	}
	m.PaymentDecisionsTotal.WithLabelValues(decision, result).Inc()
}

// RecordTeamFinalized はチームの確定を記録する
func (m *Metrics) RecordTeamFinalized() {
	if m == nil {
		return
	}
	m.TeamsFinalizedTotal.Inc()
}

// RecordNotification は通知の配信結果を記録する
func (m *Metrics) RecordNotification(topic, status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(topic, status).Inc()
}

// RecordFeedback は評価の投稿を記録する
func (m *Metrics) RecordFeedback(rating int) {
	if m == nil {
		return
	}
	m.FeedbackTotal.WithLabelValues(strconv.Itoa(rating)).Inc()
}

// ObserveLock は分散ロックの操作時間を記録する
func (m *Metrics) ObserveLock(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
