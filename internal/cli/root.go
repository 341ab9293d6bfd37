// Package cli はサーバーと運用コマンドのエントリポイントを提供する
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

// NewRootCommand はルートコマンドを作成する
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "event-registration",
		Short:         "Event registration engine",
		Long:          "イベントの作成・承認、参加登録、チーム編成、チケット発行を扱うAPIサーバーと運用コマンド",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newTokenCommand())

	return cmd
}

// loadConfig は設定を読み込み、ロガーを初期化する
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.App.Env, cfg.App.LogLevel)
	return cfg, nil
}
