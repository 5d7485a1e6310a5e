// Package pg はコードチャンクのPostgreSQL永続化を提供します
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

// ChunkRepositoryRW はトランザクション内で動作するチャンクの読み書きリポジトリです
type ChunkRepositoryRW struct {
	tx pgx.Tx
}

// NewChunkRepositoryRW は新しいChunkRepositoryRWを作成します
func NewChunkRepositoryRW(tx pgx.Tx) *ChunkRepositoryRW {
	return &ChunkRepositoryRW{tx: tx}
}

// DeleteByFiles は指定ファイルの既存チャンクを削除します
func (r *ChunkRepositoryRW) DeleteByFiles(ctx context.Context, repoURL, branch string, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	tag, err := r.tx.Exec(ctx, `
		DELETE FROM code_chunks
		WHERE repo_url = $1 AND branch = $2 AND file_path = ANY($3)
	`, repoURL, branch, paths)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks by files: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteMissing は presentPaths に含まれないファイルのチャンクを削除します
// リポジトリのフルウォーク後に、消えたファイルの残骸を掃除するために使用します
func (r *ChunkRepositoryRW) DeleteMissing(ctx context.Context, repoURL, branch string, presentPaths []string) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		DELETE FROM code_chunks
		WHERE repo_url = $1 AND branch = $2 AND NOT (file_path = ANY($3))
	`, repoURL, branch, presentPaths)
	if err != nil {
		return 0, fmt.Errorf("failed to delete missing chunks: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Insert はチャンクをバッチ挿入します
func (r *ChunkRepositoryRW) Insert(ctx context.Context, chunks []*domain.CodeChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO code_chunks (
				id, repo_url, branch, file_path, content,
				start_line, end_line, tokens, content_type, embedding, indexed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			chunk.ID,
			chunk.RepoURL,
			chunk.Branch,
			chunk.FilePath,
			chunk.Content,
			chunk.StartLine,
			chunk.EndLine,
			chunk.Tokens,
			chunk.ContentType,
			pgvector.NewVector(chunk.Embedding),
			chunk.IndexedAt,
		)
	}

	results := r.tx.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return len(chunks), nil
}

// Search はクエリベクトルとのコサイン類似度が高い順にチャンクを返します
func (r *ChunkRepositoryRW) Search(ctx context.Context, embedding []float32, limit int) ([]*domain.SearchHit, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT
			id, repo_url, branch, file_path, content,
			start_line, end_line, tokens, content_type, indexed_at,
			1 - (embedding <=> $1) AS score
		FROM code_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var hits []*domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.RepoURL,
			&hit.Chunk.Branch,
			&hit.Chunk.FilePath,
			&hit.Chunk.Content,
			&hit.Chunk.StartLine,
			&hit.Chunk.EndLine,
			&hit.Chunk.Tokens,
			&hit.Chunk.ContentType,
			&hit.Chunk.IndexedAt,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk rows: %w", err)
	}

	return hits, nil
}
