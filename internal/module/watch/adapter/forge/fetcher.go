package forge

import (
	"context"
	"fmt"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// DiffFetcher はプラットフォームごとのクライアントにdiff/メタデータ取得を
// 振り分けるアダプターです
type DiffFetcher struct {
	github *GitHubClient
	gitlab *GitLabClient
}

// NewDiffFetcher は新しいDiffFetcherを作成します
// 使わないプラットフォームのクライアントはnilで構いません
func NewDiffFetcher(github *GitHubClient, gitlab *GitLabClient) *DiffFetcher {
	return &DiffFetcher{
		github: github,
		gitlab: gitlab,
	}
}

var _ domain.DiffFetcher = (*DiffFetcher)(nil)

// FetchDiff はdiff本文を取得します
func (f *DiffFetcher) FetchDiff(ctx context.Context, platform domain.Platform, id int64) (string, error) {
	switch platform {
	case domain.PlatformGitHub:
		if f.github == nil {
			return "", fmt.Errorf("github platform is not configured")
		}
		return f.github.FetchDiff(ctx, id)
	case domain.PlatformGitLab:
		if f.gitlab == nil {
			return "", fmt.Errorf("gitlab platform is not configured")
		}
		return f.gitlab.FetchDiff(ctx, id)
	default:
		return "", fmt.Errorf("unknown platform: %s", platform)
	}
}

// FetchInfo はPR/MRのメタデータを取得します
func (f *DiffFetcher) FetchInfo(ctx context.Context, platform domain.Platform, id int64) (*domain.RequestInfo, error) {
	switch platform {
	case domain.PlatformGitHub:
		if f.github == nil {
			return nil, fmt.Errorf("github platform is not configured")
		}
		return f.github.FetchInfo(ctx, id)
	case domain.PlatformGitLab:
		if f.gitlab == nil {
			return nil, fmt.Errorf("gitlab platform is not configured")
		}
		return f.gitlab.FetchInfo(ctx, id)
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
}
