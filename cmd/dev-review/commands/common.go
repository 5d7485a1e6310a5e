// Package commands はdev-review CLIの各コマンド実装を提供します
package commands

import (
	"fmt"

	"github.com/jinford/dev-review/internal/platform/container"
	"github.com/jinford/dev-review/internal/platform/logger"
	"github.com/jinford/dev-review/pkg/config"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

// NewAppContext は設定ファイルを読み込み、コンテナを組み立てて AppContext を作成する
// quiet がtrueの場合、エラー以外のログを抑制する
func NewAppContext(envFile string, quiet bool) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logConfig := logger.DefaultConfig()
	if quiet {
		logConfig = logger.QuietConfig()
	}
	appLogger := logger.New(logConfig)

	cont, err := container.New(cfg, appLogger)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// truncateString は文字列を指定幅に切り詰めます
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
