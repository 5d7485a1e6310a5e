// Package testing はインデックスモジュールのテスト用モックを提供します
package testing

import (
	"context"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

// MockSourceProvider は domain.SourceProvider のモックです
type MockSourceProvider struct {
	ResolveFunc func(ctx context.Context, repoURL, repoPath, branch string) (string, error)
}

func (m *MockSourceProvider) Resolve(ctx context.Context, repoURL, repoPath, branch string) (string, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, repoURL, repoPath, branch)
	}
	return repoPath, nil
}

// MockChunker は domain.Chunker のモックです
type MockChunker struct {
	ChunkFunc func(content string) ([]domain.Segment, error)
}

func (m *MockChunker) Chunk(content string) ([]domain.Segment, error) {
	if m.ChunkFunc != nil {
		return m.ChunkFunc(content)
	}
	return []domain.Segment{
		{Content: content, StartLine: 1, EndLine: 1, Tokens: len(content)},
	}, nil
}

// MockEmbedder は domain.Embedder のモックです
type MockEmbedder struct {
	BatchEmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionValue int
}

func (m *MockEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.BatchEmbedFunc != nil {
		return m.BatchEmbedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimension() int {
	if m.DimensionValue != 0 {
		return m.DimensionValue
	}
	return 3
}

// MockChunkRepository は domain.ChunkRepository のモックです
type MockChunkRepository struct {
	ReplaceFunc func(ctx context.Context, req domain.ReplaceRequest) (*domain.ReplaceResult, error)
	SearchFunc  func(ctx context.Context, embedding []float32, limit int) ([]*domain.SearchHit, error)
}

func (m *MockChunkRepository) Replace(ctx context.Context, req domain.ReplaceRequest) (*domain.ReplaceResult, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, req)
	}
	added := 0
	for _, f := range req.Files {
		added += len(f.Chunks)
	}
	return &domain.ReplaceResult{Added: added}, nil
}

func (m *MockChunkRepository) Search(ctx context.Context, embedding []float32, limit int) ([]*domain.SearchHit, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, embedding, limit)
	}
	return nil, nil
}

// MockTypeDetector は domain.TypeDetector のモックです
type MockTypeDetector struct {
	IsBinaryFunc          func(content []byte) bool
	DetectContentTypeFunc func(path string, content []byte) string
}

func (m *MockTypeDetector) IsBinary(content []byte) bool {
	if m.IsBinaryFunc != nil {
		return m.IsBinaryFunc(content)
	}
	return false
}

func (m *MockTypeDetector) DetectContentType(path string, content []byte) string {
	if m.DetectContentTypeFunc != nil {
		return m.DetectContentTypeFunc(path, content)
	}
	return "text/plain"
}

// AllowAllMatcher は何も除外しない domain.IgnoreMatcher です
type AllowAllMatcher struct{}

func (AllowAllMatcher) ShouldIgnore(path string) bool { return false }
