package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "PostgreSQLのスキーマを管理する",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "マイグレーションを戻す",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1: %d", steps)
			}
			return withDatabase(func(cfg *config.Config, run migrationRunner) error {
				if err := run.down(steps); err != nil {
					return err
				}
				logger.Info("マイグレーションを戻しました", zap.Int("steps", steps))
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "戻すステップ数")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "未適用のマイグレーションを適用する",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config, run migrationRunner) error {
				if err := run.up(); err != nil {
					return err
				}
				logger.Info("マイグレーションを適用しました", zap.String("path", cfg.App.MigrationsPath))
				return nil
			})
		},
	})
	cmd.AddCommand(down)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "現在のスキーマバージョンを表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config, run migrationRunner) error {
				version, dirty, err := run.version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

// migrationRunner は接続済みDBに対するマイグレーション操作
type migrationRunner struct {
	up      func() error
	down    func(steps int) error
	version func() (uint, bool, error)
}

func withDatabase(fn func(cfg *config.Config, run migrationRunner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	path := cfg.App.MigrationsPath
	return fn(cfg, migrationRunner{
		up:      func() error { return postgres.RunMigrations(db.DB, path) },
		down:    func(steps int) error { return postgres.RollbackMigrations(db.DB, path, steps) },
		version: func() (uint, bool, error) { return postgres.MigrationVersion(db.DB, path) },
	})
}
