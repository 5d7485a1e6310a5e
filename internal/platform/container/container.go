// Package container はアプリケーション全体の依存関係を組み立てます
package container

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jinford/dev-review/internal/module/indexing/adapter/chunker"
	"github.com/jinford/dev-review/internal/module/indexing/adapter/detector"
	"github.com/jinford/dev-review/internal/module/indexing/adapter/embedder"
	"github.com/jinford/dev-review/internal/module/indexing/adapter/filter"
	indexinggit "github.com/jinford/dev-review/internal/module/indexing/adapter/git"
	indexingpg "github.com/jinford/dev-review/internal/module/indexing/adapter/pg"
	indexingapp "github.com/jinford/dev-review/internal/module/indexing/application"
	indexingdomain "github.com/jinford/dev-review/internal/module/indexing/domain"
	queueapp "github.com/jinford/dev-review/internal/module/queue/application"
	queuedomain "github.com/jinford/dev-review/internal/module/queue/domain"
	"github.com/jinford/dev-review/internal/module/watch/adapter/engine"
	"github.com/jinford/dev-review/internal/module/watch/adapter/forge"
	watchapp "github.com/jinford/dev-review/internal/module/watch/application"
	watchdomain "github.com/jinford/dev-review/internal/module/watch/domain"
	"github.com/jinford/dev-review/internal/platform/database"
	"github.com/jinford/dev-review/internal/platform/docstore"
	"github.com/jinford/dev-review/pkg/config"
	"github.com/jinford/dev-review/pkg/db"
)

const (
	queueStateFile  = "jobs.json"
	ledgerStateFile = "watch-ledger.json"
)

// Container はコマンドが利用するサービス群を保持します
// データベースを必要とするサービスは ConnectDatabase の呼び出し後に利用できます
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Scheduler *queueapp.JobScheduler
	Ledger    *watchapp.WatchLedger
	Engine    watchdomain.ReviewEngine
	Fetcher   watchdomain.DiffFetcher
	GitHub    *forge.GitHubClient
	GitLab    *forge.GitLabClient

	// ConnectDatabase後に設定される
	IndexService  *indexingapp.IndexService
	SearchService *indexingapp.SearchService

	database *db.DB
}

// New は設定からコンテナを組み立てます
// レビューエンジンとキュー/台帳ストアはここで初期化され、
// データベース接続は必要なコマンドが ConnectDatabase で行います
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	queueStore := docstore.New[queuedomain.QueueState](filepath.Join(cfg.Store.Dir, queueStateFile))
	ledgerStore := docstore.New[watchdomain.LedgerState](filepath.Join(cfg.Store.Dir, ledgerStateFile))

	// APIキー未設定でもキュー/台帳系コマンドは動作させる
	// レビューエンジンを使うコマンド側でnilを検査する
	var reviewEngine watchdomain.ReviewEngine
	if cfg.OpenAI.APIKey != "" {
		e, err := engine.NewOpenAIEngine(cfg.OpenAI.APIKey, cfg.OpenAI.ReviewModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize review engine: %w", err)
		}
		reviewEngine = e
	}

	runner := forge.NewExecRunner()
	github := forge.NewGitHubClient(runner, cfg.Watch.GitHubRepo)
	gitlab := forge.NewGitLabClient(runner, cfg.Watch.GitLabProject)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Scheduler: queueapp.NewJobScheduler(queueStore, logger),
		Ledger:    watchapp.NewWatchLedger(ledgerStore, logger),
		Engine:    reviewEngine,
		Fetcher:   forge.NewDiffFetcher(github, gitlab),
		GitHub:    github,
		GitLab:    gitlab,
	}, nil
}

// ConnectDatabase はデータベースに接続し、インデックス系サービスを初期化します
func (c *Container) ConnectDatabase(ctx context.Context) error {
	if c.database != nil {
		return nil
	}

	conn, err := db.New(ctx, db.ConnectionParams{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := indexingpg.EnsureSchema(ctx, conn.Pool, c.Config.OpenAI.EmbeddingDimension); err != nil {
		conn.Close()
		return err
	}

	tokenChunker, err := chunker.NewTokenChunker()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	openaiEmbedder := embedder.NewOpenAIEmbedder(
		c.Config.OpenAI.APIKey,
		embedder.WithModel(c.Config.OpenAI.EmbeddingModel),
		embedder.WithDimension(c.Config.OpenAI.EmbeddingDimension),
	)

	chunkStore := database.NewChunkStore(database.NewTransactionProvider(conn.Pool))
	provider := indexinggit.NewSourceProvider(
		c.Config.Git.CloneDir,
		c.Config.Git.SSHKeyPath,
		c.Config.Git.SSHPassword,
	)

	c.database = conn
	c.IndexService = indexingapp.NewIndexService(
		provider,
		tokenChunker,
		openaiEmbedder,
		chunkStore,
		detector.NewContentTypeDetector(),
		func(workspace string) (indexingdomain.IgnoreMatcher, error) {
			return filter.NewIgnoreFilter(workspace)
		},
		c.Logger,
	)
	c.SearchService = indexingapp.NewSearchService(openaiEmbedder, chunkStore)

	return nil
}

// NewWorker はインデックスワーカーを組み立てます
// 事前に ConnectDatabase が呼ばれている必要があります
// pollInterval が0の場合は設定値を使用します
func (c *Container) NewWorker(pollInterval time.Duration) (*queueapp.Worker, error) {
	if c.IndexService == nil {
		return nil, fmt.Errorf("database is not connected")
	}

	workerConfig := queueapp.WorkerConfig{
		PollInterval:    c.Config.Worker.PollInterval,
		CleanupSchedule: c.Config.Worker.CleanupSchedule,
		CleanupMaxAge:   c.Config.Worker.CleanupMaxAge,
	}
	if pollInterval > 0 {
		workerConfig.PollInterval = pollInterval
	}

	return queueapp.NewWorker(workerConfig, c.Scheduler, c.IndexService, c.Logger), nil
}

// Close は保持しているリソースを解放します
func (c *Container) Close() {
	if c.database != nil {
		c.database.Close()
		c.database = nil
	}
}
