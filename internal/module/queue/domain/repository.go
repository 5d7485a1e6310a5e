package domain

import (
	"context"
	"errors"
)

// ErrJobNotFound は存在しないジョブIDを操作した場合のエラー
var ErrJobNotFound = errors.New("job not found")

// Store はキュー状態の永続化ポートです
// 読み込み/保存は常にドキュメント全体を対象とします
type Store interface {
	Load() (*QueueState, error)
	Save(state *QueueState) error
	Path() string
}

// Indexer はジョブを処理するインデクサーのポートです
type Indexer interface {
	ProcessJob(ctx context.Context, job *Job) (*JobResult, error)
}
