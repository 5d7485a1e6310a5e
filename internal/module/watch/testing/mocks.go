package testing

import (
	"context"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// MockDetector はテスト用のモックDetectorです
type MockDetector struct {
	PlatformValue domain.Platform
	DetectFunc    func(ctx context.Context) ([]domain.ReviewRequest, error)
}

func (m *MockDetector) Platform() domain.Platform {
	return m.PlatformValue
}

func (m *MockDetector) Detect(ctx context.Context) ([]domain.ReviewRequest, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx)
	}
	return nil, nil
}

// MockDiffFetcher はテスト用のモックDiffFetcherです
type MockDiffFetcher struct {
	FetchDiffFunc func(ctx context.Context, platform domain.Platform, id int64) (string, error)
	FetchInfoFunc func(ctx context.Context, platform domain.Platform, id int64) (*domain.RequestInfo, error)
}

func (m *MockDiffFetcher) FetchDiff(ctx context.Context, platform domain.Platform, id int64) (string, error) {
	if m.FetchDiffFunc != nil {
		return m.FetchDiffFunc(ctx, platform, id)
	}
	return "", nil
}

func (m *MockDiffFetcher) FetchInfo(ctx context.Context, platform domain.Platform, id int64) (*domain.RequestInfo, error) {
	if m.FetchInfoFunc != nil {
		return m.FetchInfoFunc(ctx, platform, id)
	}
	return &domain.RequestInfo{}, nil
}

// MockReviewEngine はテスト用のモックReviewEngineです
type MockReviewEngine struct {
	RunFunc func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error)
}

func (m *MockReviewEngine) Run(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, diff, reviewContext, overrides)
	}
	return &domain.ReviewResult{Content: "looks good"}, nil
}

// MockSelector はテスト用のモックSelectorです
// SelectFuncが未設定の場合は全件選択します
type MockSelector struct {
	SelectFunc func(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error)
}

func (m *MockSelector) Select(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error) {
	if m.SelectFunc != nil {
		return m.SelectFunc(requests)
	}
	return requests, nil
}
