package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（インデックスワーカー/検索で使用）
	Database DatabaseConfig

	// OpenAI設定（レビューエンジン + Embeddings用）
	OpenAI OpenAIConfig

	// Git設定
	Git GitConfig

	// 永続化ストア設定
	Store StoreConfig

	// watchモード設定
	Watch WatchConfig

	// インデックスワーカー設定
	Worker WorkerConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定（レビュー生成 + Embeddings）
type OpenAIConfig struct {
	APIKey             string
	ReviewModel        string // レビュー生成に使用するモデル名
	EmbeddingModel     string
	EmbeddingDimension int
}

// GitConfig はGit操作設定
type GitConfig struct {
	CloneDir    string
	SSHKeyPath  string
	SSHPassword string // SSH秘密鍵のパスワード（パスフレーズ）
}

// StoreConfig は永続化ストア（JSONドキュメント）の設定
type StoreConfig struct {
	// Dir はジョブキューとwatch台帳のJSONファイルを置くディレクトリ
	Dir string
}

// WatchConfig はwatchモードの設定
type WatchConfig struct {
	// Interval はポーリング間隔
	Interval time.Duration
	// GitHubRepo は監視対象のGitHubリポジトリ（owner/name、空の場合はカレントリポジトリ）
	GitHubRepo string
	// GitLabProject は監視対象のGitLabプロジェクト（空の場合はカレントリポジトリ）
	GitLabProject string
}

// WorkerConfig はインデックスワーカーの設定
type WorkerConfig struct {
	// PollInterval はジョブキューのポーリング間隔
	PollInterval time.Duration
	// CleanupSchedule は完了ジョブ掃除のCronスケジュール
	CleanupSchedule string
	// CleanupMaxAge はこの期間を超えた完了/失敗ジョブを削除する
	CleanupMaxAge time.Duration
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "devreview"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "devreview"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			ReviewModel:        getEnv("OPENAI_REVIEW_MODEL", "gpt-4o"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		Git: GitConfig{
			CloneDir:    getEnv("GIT_CLONE_DIR", "/var/lib/dev-review/repos"),
			SSHKeyPath:  getEnv("GIT_SSH_KEY_PATH", ""),
			SSHPassword: getEnv("GIT_SSH_PASSWORD", ""),
		},
		Store: StoreConfig{
			Dir: getEnv("STORE_DIR", "/var/lib/dev-review/state"),
		},
		Watch: WatchConfig{
			Interval:      getEnvAsDuration("WATCH_INTERVAL", 60*time.Second),
			GitHubRepo:    getEnv("WATCH_GITHUB_REPO", ""),
			GitLabProject: getEnv("WATCH_GITLAB_PROJECT", ""),
		},
		Worker: WorkerConfig{
			PollInterval:    getEnvAsDuration("WORKER_POLL_INTERVAL", 10*time.Second),
			CleanupSchedule: getEnv("WORKER_CLEANUP_SCHEDULE", "0 3 * * *"),
			CleanupMaxAge:   getEnvAsDuration("WORKER_CLEANUP_MAX_AGE", 7*24*time.Hour),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をtime.Durationとして取得します
// 単位なしの数値は秒として解釈します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
