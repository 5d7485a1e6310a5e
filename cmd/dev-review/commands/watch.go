package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-review/internal/module/watch/adapter/selector"
	watchapp "github.com/jinford/dev-review/internal/module/watch/application"
	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// WatchAction はレビュー候補の監視ループを起動するコマンドのアクション
// 最初のシグナルで進行中の処理完了を待って停止し、2度目で即時終了します
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	interval := cmd.Duration("interval")
	auto := cmd.Bool("auto")
	platformsStr := cmd.String("platforms")
	quiet := cmd.Bool("quiet")
	model := cmd.String("model")

	appCtx, err := NewAppContext(envFile, quiet)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cont := appCtx.Container
	log := cont.Logger

	if cont.Engine == nil {
		return fmt.Errorf("OPENAI_API_KEY が設定されていません")
	}

	detectors, err := resolveDetectors(cont.GitHub, cont.GitLab, platformsStr)
	if err != nil {
		return err
	}

	var sel domain.Selector
	if auto {
		sel = selector.NewAutoSelector()
	} else {
		sel = selector.NewInteractiveSelector()
	}

	if interval <= 0 {
		interval = appCtx.Config.Watch.Interval
	}

	shutdown := watchapp.NewShutdownSignal()
	controller := watchapp.NewPollCycleController(
		detectors,
		cont.Ledger,
		cont.Fetcher,
		cont.Engine,
		sel,
		shutdown,
		domain.ModelOverrides{Model: model},
		os.Stdout,
		log,
	)
	loop := watchapp.NewWatchLoop(interval, controller, shutdown, log)

	// 1度目のシグナルは進行中のレビュー完了後に停止、2度目は即時終了
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Info("shutdown requested, finishing in-flight review")
		shutdown.Request()
		<-sigCh
		log.Error("forced shutdown")
		os.Exit(1)
	}()

	// ループの停止はShutdownSignal経由で行うため、
	// プロセスシグナルによるコンテキストキャンセルから切り離す
	return loop.Run(context.WithoutCancel(ctx))
}

// resolveDetectors はカンマ区切りのプラットフォーム指定を検出器に解決します
func resolveDetectors(github, gitlab domain.Detector, platformsStr string) ([]domain.Detector, error) {
	var detectors []domain.Detector
	for _, name := range strings.Split(platformsStr, ",") {
		switch domain.Platform(strings.TrimSpace(name)) {
		case domain.PlatformGitHub:
			detectors = append(detectors, github)
		case domain.PlatformGitLab:
			detectors = append(detectors, gitlab)
		default:
			return nil, fmt.Errorf("不明なプラットフォームです: %s", name)
		}
	}
	if len(detectors) == 0 {
		return nil, fmt.Errorf("--platforms に監視対象を指定してください")
	}
	return detectors, nil
}
