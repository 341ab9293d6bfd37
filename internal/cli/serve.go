package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanosuguru/go-event-registration/internal/api/router"
	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-registration/internal/pkg/tracing"
	"github.com/sanosuguru/go-event-registration/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーと通知リレーを起動する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve はHTTPサーバーと通知リレーを起動し、ctx の終了で停止する
func serve(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("トレースのフラッシュに失敗", zap.Error(err))
		}
	}()

	m := metrics.Init()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	e := router.New(a.services(), router.Options{
		Server:       cfg.Server,
		Auth:         cfg.Auth,
		Metrics:      cfg.Metrics,
		Recorder:     m,
		HealthChecks: a.checks,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	relay := worker.NewOutboxRelay(a.outbox, a.publisher, cfg.Worker.RelayInterval, cfg.Worker.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		relay.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("store", string(cfg.App.StoreDriver)))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}
