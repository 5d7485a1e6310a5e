package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// GitHubClient はgh CLI経由でGitHubのPRを扱うアダプターです
type GitHubClient struct {
	runner CommandRunner
	// repo は対象リポジトリ（owner/name）。空の場合はカレントディレクトリの
	// リポジトリをghが解決します
	repo string
}

// NewGitHubClient は新しいGitHubClientを作成します
func NewGitHubClient(runner CommandRunner, repo string) *GitHubClient {
	return &GitHubClient{
		runner: runner,
		repo:   repo,
	}
}

var _ domain.Detector = (*GitHubClient)(nil)

// Platform はgithubを返します
func (c *GitHubClient) Platform() domain.Platform {
	return domain.PlatformGitHub
}

// ghPullRequest はgh pr listのJSON出力の1要素です
type ghPullRequest struct {
	Number    int64     `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updatedAt"`
	State     string    `json:"state"`
	HeadRepo  struct {
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		Name string `json:"name"`
	} `json:"headRepository"`
}

// Detect はオープン中のPRをレビュー候補として列挙します
func (c *GitHubClient) Detect(ctx context.Context) ([]domain.ReviewRequest, error) {
	args := []string{"pr", "list", "--state", "open", "--json", "number,title,url,updatedAt,state,headRepository"}
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}

	out, err := c.runner.Run(ctx, "gh", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	var prs []ghPullRequest
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse gh pr list output: %w", err)
	}

	requests := make([]domain.ReviewRequest, 0, len(prs))
	for _, pr := range prs {
		repo := c.repo
		if repo == "" && pr.HeadRepo.Owner.Login != "" {
			repo = pr.HeadRepo.Owner.Login + "/" + pr.HeadRepo.Name
		}
		requests = append(requests, domain.ReviewRequest{
			Platform:   domain.PlatformGitHub,
			ID:         pr.Number,
			Title:      pr.Title,
			URL:        pr.URL,
			Repository: repo,
			UpdatedAt:  pr.UpdatedAt,
			State:      pr.State,
		})
	}

	return requests, nil
}

// FetchDiff はPRのdiff本文を取得します
func (c *GitHubClient) FetchDiff(ctx context.Context, id int64) (string, error) {
	args := []string{"pr", "diff", strconv.FormatInt(id, 10)}
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}

	out, err := c.runner.Run(ctx, "gh", args...)
	if err != nil {
		return "", fmt.Errorf("failed to fetch pull request diff: %w", err)
	}

	return string(out), nil
}

// ghPullRequestView はgh pr viewのJSON出力です
type ghPullRequestView struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	HeadRefName string `json:"headRefName"`
	BaseRefName string `json:"baseRefName"`
}

// FetchInfo はPRのメタデータを取得します
func (c *GitHubClient) FetchInfo(ctx context.Context, id int64) (*domain.RequestInfo, error) {
	args := []string{"pr", "view", strconv.FormatInt(id, 10), "--json", "title,body,author,headRefName,baseRefName"}
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}

	out, err := c.runner.Run(ctx, "gh", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull request info: %w", err)
	}

	var view ghPullRequestView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("failed to parse gh pr view output: %w", err)
	}

	return &domain.RequestInfo{
		Title:       view.Title,
		Author:      view.Author.Login,
		Branch:      view.HeadRefName,
		BaseBranch:  view.BaseRefName,
		Description: view.Body,
	}, nil
}
