package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	queueapp "github.com/jinford/dev-review/internal/module/queue/application"
	"github.com/jinford/dev-review/internal/module/queue/domain"
)

// QueueEnqueueAction はインデックスジョブを登録するコマンドのアクション
func QueueEnqueueAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	repoURL := cmd.String("repo-url")
	repoPath := cmd.String("repo-path")
	branch := cmd.String("branch")
	files := cmd.StringSlice("file")
	priorityStr := cmd.String("priority")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	scheduler := appCtx.Container.Scheduler

	// 既存ジョブの有無は通知のみで、登録は妨げない
	exists, err := scheduler.HasExistingJob(repoURL, branch)
	if err != nil {
		return fmt.Errorf("既存ジョブの確認に失敗: %w", err)
	}
	if exists {
		fmt.Printf("注意: %s (%s) には未完了のジョブが既に存在します\n", repoURL, branch)
	}

	job, err := scheduler.Enqueue(queueapp.EnqueueInput{
		RepoURL:      repoURL,
		RepoPath:     repoPath,
		Branch:       branch,
		ChangedFiles: files,
		FileCount:    len(files),
		Priority:     domain.Priority(priorityStr),
	})
	if err != nil {
		return fmt.Errorf("ジョブの登録に失敗: %w", err)
	}

	fmt.Printf("ジョブを登録しました: %s (priority=%s)\n", job.ID, job.Priority)
	return nil
}

// QueueListAction はジョブ一覧を表示するコマンドのアクション
func QueueListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	statusStr := cmd.String("status")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	scheduler := appCtx.Container.Scheduler

	var jobs []*domain.Job
	if statusStr != "" {
		jobs, err = scheduler.GetJobsByStatus(domain.Status(statusStr))
	} else {
		jobs, err = scheduler.GetAllJobs()
	}
	if err != nil {
		return fmt.Errorf("ジョブの取得に失敗: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("ジョブはありません")
		return nil
	}

	renderJobsTable(jobs)
	return nil
}

// QueueStatusAction はステータスごとのジョブ数を表示するコマンドのアクション
func QueueStatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.Scheduler.Stats()
	if err != nil {
		return fmt.Errorf("ジョブ数の取得に失敗: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Status", "Count")
	table.Append("pending", fmt.Sprintf("%d", stats.Pending))
	table.Append("processing", fmt.Sprintf("%d", stats.Processing))
	table.Append("completed", fmt.Sprintf("%d", stats.Completed))
	table.Append("failed", fmt.Sprintf("%d", stats.Failed))
	table.Render()
	return nil
}

// QueueWorkerAction はインデックスワーカーを起動するコマンドのアクション
func QueueWorkerAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	pollInterval := cmd.Duration("poll-interval")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.ConnectDatabase(ctx); err != nil {
		return fmt.Errorf("データベースへの接続に失敗: %w", err)
	}

	worker, err := appCtx.Container.NewWorker(pollInterval)
	if err != nil {
		return err
	}

	fmt.Printf("ワーカーを起動します (queue=%s)\n", appCtx.Container.Scheduler.StorePath())
	return worker.Run(ctx)
}

// QueueCleanupAction は古い終了ジョブを削除するコマンドのアクション
func QueueCleanupAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	maxAge := cmd.Duration("max-age")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	removed, err := appCtx.Container.Scheduler.CleanupOldJobs(maxAge)
	if err != nil {
		return fmt.Errorf("ジョブの削除に失敗: %w", err)
	}

	fmt.Printf("%d件のジョブを削除しました\n", removed)
	return nil
}

// renderJobsTable はジョブ一覧をテーブル表示します
func renderJobsTable(jobs []*domain.Job) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Repository", "Branch", "Files", "Priority", "Status", "Enqueued At")

	for _, job := range jobs {
		files := "all"
		if job.FileCount > 0 {
			files = fmt.Sprintf("%d", job.FileCount)
		}
		table.Append(
			truncateString(job.ID, 8),
			truncateString(job.RepoURL, 40),
			job.Branch,
			files,
			string(job.Priority),
			string(job.Status),
			job.EnqueuedAt.Format("2006-01-02 15:04"),
		)
	}

	table.Render()
}
