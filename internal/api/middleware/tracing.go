package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/sanosuguru/go-event-registration/internal/pkg/tracing"
)

// Tracing はリクエストごとにスパンを開始し、上流のトレースコンテキストを引き継ぐ
func Tracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			path := c.Path()
			if path == "" {
				path = req.URL.Path
			}
			ctx, span := tracing.Start(ctx, req.Method+" "+path)
			span.SetAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("http.route", path),
				attribute.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			span.SetAttributes(attribute.Int("http.response.status_code", c.Response().Status))
			tracing.End(span, err)
			return err
		}
	}
}
