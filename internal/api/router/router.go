// Package router はHTTPルーティングを組み立てる
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/api/handler"
	"github.com/sanosuguru/go-event-registration/internal/api/middleware"
	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
)

// Services はハンドラーが使うサービス群
type Services struct {
	Events        handler.EventServiceInterface
	Registrations handler.RegistrationServiceInterface
	Teams         handler.TeamServiceInterface
	Feedback      handler.FeedbackServiceInterface
}

// Options はルーターの設定
type Options struct {
	Server  config.ServerConfig
	Auth    config.AuthConfig
	Metrics config.MetricsConfig
	// Recorder が nil ならHTTPメトリクスを記録せず /metrics も公開しない
	Recorder *metrics.Metrics
	// HealthChecks は /health で確認する依存先
	HealthChecks map[string]handler.HealthCheck
}

// New はルーティング済みのEchoインスタンスを作成する
func New(svc Services, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e, opts.Server)
	if opts.Recorder != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Recorder))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(opts.Metrics))
	}

	healthHandler := handler.NewHealthHandler(opts.HealthChecks)
	eventHandler := handler.NewEventHandler(svc.Events)
	registrationHandler := handler.NewRegistrationHandler(svc.Registrations)
	teamHandler := handler.NewTeamHandler(svc.Teams)
	feedbackHandler := handler.NewFeedbackHandler(svc.Feedback)

	e.GET("/health", healthHandler.Check)

	v1 := e.Group("/api/v1", middleware.Authenticate(opts.Auth))

	organizer := middleware.RequireRole(identity.RoleOrganizer)
	participant := middleware.RequireRole(identity.RoleParticipant)
	admin := middleware.RequireRole(identity.RoleAdmin)
	organizerOrAdmin := middleware.RequireRole(identity.RoleOrganizer, identity.RoleAdmin)

	// イベント
	v1.GET("/events", eventHandler.List)
	v1.POST("/events", eventHandler.Create, organizer)
	v1.GET("/events/trending", eventHandler.Trending)
	v1.GET("/events/mine", eventHandler.ListMine, organizer)
	v1.GET("/events/mine/analytics", eventHandler.Dashboard, organizer)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.PUT("/events/:id", eventHandler.Update, organizer)
	v1.DELETE("/events/:id", eventHandler.Delete, organizerOrAdmin)
	v1.PATCH("/events/:id/status", eventHandler.ChangeStatus, organizer)
	v1.PATCH("/events/:id/review", eventHandler.Review, admin)
	v1.GET("/events/:id/availability", eventHandler.Availability)
	v1.GET("/events/:id/analytics", eventHandler.Analytics, organizer)
	v1.GET("/admin/events/pending", eventHandler.ListPendingReview, admin)

	// 参加登録
	v1.GET("/events/:id/registrations", registrationHandler.ListForEvent, organizer)
	v1.POST("/events/:id/registrations", registrationHandler.Register, participant)
	v1.DELETE("/events/:id/registrations", registrationHandler.Cancel, participant)
	v1.GET("/registrations", registrationHandler.ListMine, participant)
	v1.GET("/registrations/:id", registrationHandler.Get, participant)
	v1.POST("/registrations/:id/payment-proof", registrationHandler.UploadProof, participant)
	v1.PATCH("/registrations/:id/payment", registrationHandler.DecidePayment, organizer)
	v1.PATCH("/registrations/:id/attendance", registrationHandler.MarkAttended, organizer)

	// チーム
	v1.GET("/events/:id/teams", teamHandler.ListForEvent, organizer)
	v1.POST("/teams", teamHandler.Create, participant)
	v1.GET("/teams", teamHandler.ListMine, participant)
	v1.GET("/teams/invite/:code", teamHandler.GetByInvite)
	v1.POST("/teams/join/:code", teamHandler.Join, participant)
	v1.GET("/teams/mine/:event_id", teamHandler.Mine, participant)
	v1.DELETE("/teams/:id", teamHandler.Disband, participant)

	// 評価
	v1.POST("/events/:id/feedback", feedbackHandler.Submit, participant)
	v1.GET("/events/:id/feedback/mine", feedbackHandler.Mine, participant)
	v1.GET("/events/:id/feedback", feedbackHandler.Report, organizerOrAdmin)

	return e
}
