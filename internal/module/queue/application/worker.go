package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jinford/dev-review/internal/module/queue/domain"
)

// WorkerConfig はインデックスワーカーの設定です
type WorkerConfig struct {
	// PollInterval はキューのポーリング間隔
	PollInterval time.Duration
	// CleanupSchedule は完了ジョブ掃除のCronスケジュール（空の場合は無効）
	CleanupSchedule string
	// CleanupMaxAge はこの期間を超えた終端ジョブを削除する
	CleanupMaxAge time.Duration
}

// Worker はジョブキューを消費してインデックス処理を実行します
// 1プロセスにつき1ワーカー、同時処理は常に1ジョブです
type Worker struct {
	config    WorkerConfig
	scheduler *JobScheduler
	indexer   domain.Indexer
	cron      *cron.Cron
	log       *slog.Logger
}

// NewWorker は新しいWorkerを作成します
func NewWorker(config WorkerConfig, scheduler *JobScheduler, indexer domain.Indexer, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	return &Worker{
		config:    config,
		scheduler: scheduler,
		indexer:   indexer,
		cron:      cron.New(),
		log:       log,
	}
}

// Run はワーカーのポーリングループを実行します
// コンテキストのキャンセルで停止します。処理中のジョブは完了まで実行されます
func (w *Worker) Run(ctx context.Context) error {
	if w.config.CleanupSchedule != "" {
		_, err := w.cron.AddFunc(w.config.CleanupSchedule, func() {
			removed, err := w.scheduler.CleanupOldJobs(w.config.CleanupMaxAge)
			if err != nil {
				w.log.Error("Failed to clean up old jobs", "error", err)
				return
			}
			if removed > 0 {
				w.log.Info("Old jobs cleaned up", "removed", removed)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to register cleanup schedule: %w", err)
		}
		w.cron.Start()
		defer w.cron.Stop()
	}

	w.log.Info("Index worker started",
		"pollInterval", w.config.PollInterval,
		"queuePath", w.scheduler.StorePath(),
	)

	for {
		if ctx.Err() != nil {
			break
		}

		processed, err := w.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.log.Error("Worker iteration failed", "error", err)
		}

		// ジョブを処理した直後は待たずに次のpendingを確認する
		if processed {
			continue
		}

		timer := time.NewTimer(w.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("Index worker stopping")
			return nil
		case <-timer.C:
		}
	}

	w.log.Info("Index worker stopping")
	return nil
}

// processNext は次のpendingジョブを1件処理します
// 処理すべきジョブがなかった場合は false を返します
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	job, err := w.scheduler.GetNextPending()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	if err := w.scheduler.MarkProcessing(job.ID); err != nil {
		return false, fmt.Errorf("failed to mark job processing: %w", err)
	}

	w.log.Info("Processing job",
		"jobID", job.ID,
		"repoURL", job.RepoURL,
		"branch", job.Branch,
		"priority", job.Priority,
	)

	result, err := w.indexer.ProcessJob(ctx, job)
	if err != nil {
		if markErr := w.scheduler.MarkFailed(job.ID, err.Error()); markErr != nil {
			w.log.Error("Failed to mark job failed", "jobID", job.ID, "error", markErr)
		}
		w.log.Error("Job failed", "jobID", job.ID, "error", err)
		return true, nil
	}

	if err := w.scheduler.MarkCompleted(job.ID, result); err != nil {
		return true, fmt.Errorf("failed to mark job completed: %w", err)
	}

	w.log.Info("Job completed",
		"jobID", job.ID,
		"chunksAdded", result.ChunksAdded,
		"chunksRemoved", result.ChunksRemoved,
		"elapsedSeconds", result.ElapsedSeconds,
	)

	return true, nil
}
