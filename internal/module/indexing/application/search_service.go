package application

import (
	"context"
	"fmt"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

const (
	// DefaultSearchLimit は件数未指定時の検索結果数
	DefaultSearchLimit = 10
	// MaxSearchLimit は検索結果数の上限
	MaxSearchLimit = 50
)

// SearchService はクエリ文字列によるセマンティック検索を提供します
type SearchService struct {
	embedder   domain.Embedder
	repository domain.ChunkRepository
}

// NewSearchService は新しいSearchServiceを作成します
func NewSearchService(embedder domain.Embedder, repository domain.ChunkRepository) *SearchService {
	return &SearchService{
		embedder:   embedder,
		repository: repository,
	}
}

// Search はクエリをEmbeddingに変換し、類似するチャンクを返します
// limitが0以下の場合はDefaultSearchLimit、上限はMaxSearchLimitです
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]*domain.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	vectors, err := s.embedder.BatchEmbed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding generated for query")
	}

	hits, err := s.repository.Search(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	return hits, nil
}
