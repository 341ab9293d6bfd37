package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
)

func TestSetupMiddleware(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, config.ServerConfig{})

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderOrigin, "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSetupMiddleware_Config(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, config.ServerConfig{
		BodyLimit:    "1K",
		AllowOrigins: []string{"https://fest.example.com"},
	})
	e.POST("/events", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	t.Run("許可されたオリジン", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{}"))
		req.Header.Set(echo.HeaderOrigin, "https://fest.example.com")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "https://fest.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("許可されていないオリジンにはCORSヘッダーを返さない", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{}"))
		req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("上限を超える本文は413", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(strings.Repeat("a", 2048)))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.Get()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })
	return logs
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		want    int
		level   zapcore.Level
		message string
	}{
		{
			name:    "成功はInfo",
			handler: func(c echo.Context) error { return c.String(http.StatusOK, "success") },
			want:    http.StatusOK,
			level:   zapcore.InfoLevel,
			message: "request completed",
		},
		{
			name:    "HTTPErrorはエラーハンドラー適用後のステータスでWarn",
			handler: func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad request") },
			want:    http.StatusBadRequest,
			level:   zapcore.WarnLevel,
			message: "client error",
		},
		{
			name:    "500はError",
			handler: func(c echo.Context) error { return c.String(http.StatusInternalServerError, "internal error") },
			want:    http.StatusInternalServerError,
			level:   zapcore.ErrorLevel,
			message: "server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)

			e := echo.New()
			e.Use(RequestIDMiddleware())
			e.Use(RequestLogger())
			e.GET("/events/:id", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/events/42", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			entries := logs.All()
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)

			fields := entry.ContextMap()
			assert.Equal(t, int64(tt.want), fields["status"])
			assert.Equal(t, "/events/42", fields["path"])
			assert.Equal(t, "/events/:id", fields["route"])
			assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
		})
	}
}

func TestRequestLogger_Principal(t *testing.T) {
	logs := observeLogs(t)

	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/me", func(c echo.Context) error {
		SetPrincipal(c, identity.Principal{ID: "user-1", Role: identity.RoleParticipant})
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Len(t, logs.All(), 1)
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "user-1", fields["principal_id"])
	assert.Equal(t, "participant", fields["role"])
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()

	e.Use(RequestIDMiddleware())

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// リクエストIDなしのリクエスト
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// レスポンスにリクエストIDが設定されていることを確認
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestIDMiddleware_WithExistingRequestID(t *testing.T) {
	e := echo.New()

	e.Use(RequestIDMiddleware())

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// 既存のリクエストIDを持つリクエスト
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderXRequestID, "existing-request-id")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// 既存のリクエストIDが維持されていることを確認
	assert.Equal(t, "existing-request-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	e := echo.New()
	e.Use(Tracing())
	e.GET("/events/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/events/42", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /events/:id", spans[0].Name())
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	e := echo.New()
	e.Use(PrometheusMiddleware(m))
	e.GET("/events/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/error", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	})
	e.GET("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "")
	})

	for _, path := range []string{"/events/1", "/events/2", "/error", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	// 実際のパスではなくルートのパターンで集計される
	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/events/:id", "200")))
	// ハンドラーが返したHTTPErrorのコードを使う
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/error", "400")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestDuration))
}
