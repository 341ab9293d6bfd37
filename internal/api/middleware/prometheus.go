package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
)

const (
	metricsPath    = "/metrics"
	unmatchedRoute = "unmatched"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア。
// ラベルにはルートのパターンを使い、/metrics 自体は記録しない
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == metricsPath {
				return next(c)
			}
			if route == "" {
				route = unmatchedRoute
			}

			start := time.Now()
			err := next(c)
			m.ObserveHTTP(c.Request().Method, route, responseStatus(c, err), time.Since(start))
			return err
		}
	}
}

// responseStatus はエラーハンドラーに渡る前のエラーも考慮して最終的なステータスを推定する
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
