package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema はチャンクテーブルと関連インデックスを作成します
// 起動時に冪等に呼び出せます
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS code_chunks (
				id UUID PRIMARY KEY,
				repo_url TEXT NOT NULL,
				branch TEXT NOT NULL,
				file_path TEXT NOT NULL,
				content TEXT NOT NULL,
				start_line INTEGER NOT NULL,
				end_line INTEGER NOT NULL,
				tokens INTEGER NOT NULL,
				content_type TEXT NOT NULL DEFAULT 'text/plain',
				embedding vector(%d),
				indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_code_chunks_repo_file
			ON code_chunks (repo_url, branch, file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_code_chunks_embedding
			ON code_chunks USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}
