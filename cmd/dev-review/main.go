package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-review/cmd/dev-review/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "dev-review",
		Usage: "PR/MRの自動レビューとコードのセマンティックインデックスを提供するCLI",
		Commands: []*cli.Command{
			{
				Name:  "review",
				Usage: "PR/MRを1件レビューして結果を表示",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "platform",
						Usage: "対象プラットフォーム (github/gitlab)",
						Value: "github",
					},
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "PR/MR番号",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "repo",
						Usage: "対象リポジトリ (owner/name、省略時はカレントリポジトリ)",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "レビューに使用するモデル名",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "結果をJSONで出力",
					},
				},
				Action: commands.ReviewAction,
			},
			{
				Name:  "watch",
				Usage: "レビュー候補を定期的に検出してレビューを実行",
				Flags: []cli.Flag{
					envFlag(),
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "ポーリング間隔 (省略時は環境変数または60s)",
					},
					&cli.BoolFlag{
						Name:  "auto",
						Usage: "確認なしで全候補をレビュー",
					},
					&cli.StringFlag{
						Name:  "platforms",
						Usage: "監視対象プラットフォーム (カンマ区切り)",
						Value: "github",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "レビュー出力以外のログを抑制",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "レビューに使用するモデル名",
					},
				},
				Action: commands.WatchAction,
			},
			{
				Name:  "queue",
				Usage: "インデックスジョブキュー管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "enqueue",
						Usage: "インデックスジョブを登録",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "repo-url",
								Usage:    "リポジトリURL",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "repo-path",
								Usage: "ローカルの作業コピーパス (省略時はclone)",
							},
							&cli.StringFlag{
								Name:  "branch",
								Usage: "対象ブランチ",
								Value: "main",
							},
							&cli.StringSliceFlag{
								Name:  "file",
								Usage: "変更ファイル (複数指定可、省略時はリポジトリ全体)",
							},
							&cli.StringFlag{
								Name:  "priority",
								Usage: "優先度 (high/normal/low)",
								Value: "normal",
							},
						},
						Action: commands.QueueEnqueueAction,
					},
					{
						Name:  "list",
						Usage: "ジョブ一覧を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "status",
								Usage: "ステータスでフィルタ (pending/processing/completed/failed)",
							},
						},
						Action: commands.QueueListAction,
					},
					{
						Name:   "status",
						Usage:  "ステータスごとのジョブ数を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.QueueStatusAction,
					},
					{
						Name:  "worker",
						Usage: "インデックスワーカーを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.DurationFlag{
								Name:  "poll-interval",
								Usage: "キューのポーリング間隔 (省略時は環境変数または10s)",
							},
						},
						Action: commands.QueueWorkerAction,
					},
					{
						Name:  "cleanup",
						Usage: "古い完了/失敗ジョブを削除",
						Flags: []cli.Flag{
							envFlag(),
							&cli.DurationFlag{
								Name:  "max-age",
								Usage: "この期間より古い終了ジョブを削除",
								Value: 7 * 24 * time.Hour,
							},
						},
						Action: commands.QueueCleanupAction,
					},
				},
			},
			{
				Name:  "ledger",
				Usage: "watch台帳管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "レビュー済み候補の一覧を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.LedgerListAction,
					},
					{
						Name:   "clear",
						Usage:  "台帳を全消去 (全候補が再レビュー対象になる)",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.LedgerClearAction,
					},
				},
			},
			{
				Name:  "index",
				Usage: "セマンティックインデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:      "search",
						Usage:     "インデックス済みコードをクエリで検索",
						ArgsUsage: "<query>",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "結果件数 (最大50)",
							},
						},
						Action: commands.IndexSearchAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
