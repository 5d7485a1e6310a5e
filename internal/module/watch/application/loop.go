package application

import (
	"context"
	"log/slog"
	"time"
)

// CycleRunner は1ポーリングサイクルを実行するインターフェースです
// 実体はPollCycleControllerです
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// WatchLoop は固定間隔でPollCycleControllerを駆動します
// 同時に実行されるサイクルは常に1つです:
// サイクル実行 → 完了待ち → インターバルスリープ → 繰り返し
//
// シャットダウンはShutdownSignal経由の協調的なもので、実行中のサイクルは
// 現在の候補まで処理してから抜けます。インターバルスリープ自体も
// シャットダウン要求で中断されます
type WatchLoop struct {
	interval time.Duration
	runner   CycleRunner
	shutdown *ShutdownSignal
	log      *slog.Logger
}

// NewWatchLoop は新しいWatchLoopを作成します
func NewWatchLoop(interval time.Duration, runner CycleRunner, shutdown *ShutdownSignal, log *slog.Logger) *WatchLoop {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &WatchLoop{
		interval: interval,
		runner:   runner,
		shutdown: shutdown,
		log:      log,
	}
}

// Run はポーリングループを実行します
// サイクル内のエラーはログされるのみでループを終了させません
// シャットダウン要求後、実行中のサイクルの完了を待ってnilを返します
func (l *WatchLoop) Run(ctx context.Context) error {
	l.log.Info("Watch loop started", "interval", l.interval)

	for {
		if l.shutdown.Requested() {
			break
		}

		report, err := l.runner.RunCycle(ctx)
		if err != nil {
			// サイクルレベルの失敗はループを殺さない
			l.log.Error("Poll cycle failed", "error", err)
		} else if report.Selected > 0 || len(report.DetectionErrors) > 0 {
			l.log.Info("Poll cycle finished",
				"detected", report.Detected,
				"eligible", report.Eligible,
				"selected", report.Selected,
				"succeeded", report.Succeeded,
				"failedPermanent", report.FailedPermanent,
				"failedTransient", report.FailedTransient,
				"interrupted", report.Interrupted,
			)
		}

		if l.shutdown.Requested() {
			break
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-l.shutdown.Done():
			timer.Stop()
			l.log.Info("Watch loop stopping")
			return nil
		case <-ctx.Done():
			timer.Stop()
			l.log.Info("Watch loop stopping", "reason", ctx.Err())
			return nil
		case <-timer.C:
		}
	}

	l.log.Info("Watch loop stopping")
	return nil
}
