package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/api/handler"
	"github.com/sanosuguru/go-event-registration/internal/api/router"
	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	"github.com/sanosuguru/go-event-registration/internal/infrastructure/memory"
	"github.com/sanosuguru/go-event-registration/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-event-registration/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-registration/internal/worker"
)

// 通知ストリームの最大長
const notificationStreamMaxLen = 10000

// app は設定から組み立てたサービスと依存先
type app struct {
	eventService        *application.EventService
	registrationService *application.RegistrationService
	teamService         *application.TeamService
	feedbackService     *application.FeedbackService

	outbox    outbox.Repository
	publisher outbox.Publisher

	checks  map[string]handler.HealthCheck
	closers []func() error
}

// repositories はストアごとのリポジトリ一式
type repositories struct {
	txm           transaction.Manager
	events        event.Repository
	registrations registration.Repository
	teams         team.Repository
	feedback      feedback.Repository
	outbox        outbox.Repository
}

// newApp は STORE_DRIVER と Redis の設定に応じて依存関係を組み立てる
func newApp(cfg *config.Config) (*app, error) {
	a := &app{checks: make(map[string]handler.HealthCheck)}

	repos, err := a.openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Redis が無効ならロックとキャッシュは使わず、通知はログに出す
	var locks redisinfra.LockManagerInterface
	var cache application.OccupancyCache
	a.publisher = worker.LogPublisher{}
	if cfg.Redis.Enabled() {
		client, err := redisinfra.NewClient(&redisinfra.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, client) }
		locks = redisinfra.NewLockManager(client, metrics.Get().ObserveLock)
		cache = redisinfra.NewOccupancyCache(client, cfg.Redis.CacheTTL)
		a.publisher = redisinfra.NewNotificationPublisher(client, cfg.Redis.Stream, notificationStreamMaxLen)
		logger.Info("Redisに接続しました", zap.String("addr", cfg.Redis.Addr()))
	} else {
		logger.Warn("Redisが無効です。分散ロックとキャッシュを使わずに起動します")
	}

	a.outbox = repos.outbox
	a.eventService = application.NewEventService(repos.txm, repos.events, repos.registrations, repos.teams, locks, cache)
	a.registrationService = application.NewRegistrationService(repos.txm, repos.events, repos.registrations, repos.outbox, locks, cache)
	a.teamService = application.NewTeamService(repos.txm, repos.events, repos.registrations, repos.teams, repos.outbox, locks, cache)
	a.feedbackService = application.NewFeedbackService(repos.txm, repos.events, repos.registrations, repos.feedback)
	return a, nil
}

func (a *app) openStore(cfg *config.Config) (*repositories, error) {
	switch cfg.App.StoreDriver {
	case config.StoreMemory:
		s := memory.NewStore()
		logger.Warn("メモリストアで起動します。データは永続化されません")
		return &repositories{
			txm:           s,
			events:        memory.NewEventRepository(s),
			registrations: memory.NewRegistrationRepository(s),
			teams:         memory.NewTeamRepository(s),
			feedback:      memory.NewFeedbackRepository(s),
			outbox:        memory.NewOutboxRepository(s),
		}, nil
	case config.StorePostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		logger.Info("データベースに接続しました", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		return &repositories{
			txm:           postgres.NewTxManager(db),
			events:        postgres.NewEventRepository(db),
			registrations: postgres.NewRegistrationRepository(db),
			teams:         postgres.NewTeamRepository(db),
			feedback:      postgres.NewFeedbackRepository(db),
			outbox:        postgres.NewOutboxRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.App.StoreDriver)
	}
}

func (a *app) services() router.Services {
	return router.Services{
		Events:        a.eventService,
		Registrations: a.registrationService,
		Teams:         a.teamService,
		Feedback:      a.feedbackService,
	}
}

// Close は開いた接続を逆順に閉じる
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("接続のクローズに失敗", zap.Error(err))
		}
	}
	a.closers = nil
}
