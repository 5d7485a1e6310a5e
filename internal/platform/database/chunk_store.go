package database

import (
	"context"
	"fmt"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
	"github.com/jinford/dev-review/pkg/lock"
)

// ChunkStore はトランザクション境界とアドバイザリロックを束ねた
// チャンク永続化の実装です
type ChunkStore struct {
	txProvider *TransactionProvider
}

// NewChunkStore は新しいChunkStoreを作成します
func NewChunkStore(txProvider *TransactionProvider) *ChunkStore {
	return &ChunkStore{txProvider: txProvider}
}

var _ domain.ChunkRepository = (*ChunkStore)(nil)

// Replace は対象ファイルのチャンクを1トランザクションで置き換えます
// 同一リポジトリ・ブランチへの同時更新はアドバイザリロックで直列化します
func (s *ChunkStore) Replace(ctx context.Context, req domain.ReplaceRequest) (*domain.ReplaceResult, error) {
	return Transact(ctx, s.txProvider, func(adapters *Adapter) (*domain.ReplaceResult, error) {
		// 同一リポジトリへの同時置き換えはブランチを問わず直列化する
		lockID := lock.GenerateLockID(req.RepoURL)
		if err := adapters.Locks.Acquire(ctx, lockID); err != nil {
			return nil, err
		}

		paths := make([]string, 0, len(req.Files))
		var chunks []*domain.CodeChunk
		for _, file := range req.Files {
			paths = append(paths, file.Path)
			chunks = append(chunks, file.Chunks...)
		}

		removed, err := adapters.Chunks.DeleteByFiles(ctx, req.RepoURL, req.Branch, paths)
		if err != nil {
			return nil, err
		}

		if req.DeleteMissing {
			missing, err := adapters.Chunks.DeleteMissing(ctx, req.RepoURL, req.Branch, req.PresentPaths)
			if err != nil {
				return nil, err
			}
			removed += missing
		}

		added, err := adapters.Chunks.Insert(ctx, chunks)
		if err != nil {
			return nil, err
		}

		return &domain.ReplaceResult{
			Added:   added,
			Removed: int(removed),
		}, nil
	})
}

// Search はクエリベクトルに類似するチャンクを返します
func (s *ChunkStore) Search(ctx context.Context, embedding []float32, limit int) ([]*domain.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	return Transact(ctx, s.txProvider, func(adapters *Adapter) ([]*domain.SearchHit, error) {
		return adapters.Chunks.Search(ctx, embedding, limit)
	})
}
