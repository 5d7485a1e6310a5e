package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// GitLabClient はglab CLI経由でGitLabのMRを扱うアダプターです
type GitLabClient struct {
	runner CommandRunner
	// project は対象プロジェクト（group/name）。空の場合はカレントディレクトリの
	// プロジェクトをglabが解決します
	project string
}

// NewGitLabClient は新しいGitLabClientを作成します
func NewGitLabClient(runner CommandRunner, project string) *GitLabClient {
	return &GitLabClient{
		runner:  runner,
		project: project,
	}
}

var _ domain.Detector = (*GitLabClient)(nil)

// Platform はgitlabを返します
func (c *GitLabClient) Platform() domain.Platform {
	return domain.PlatformGitLab
}

// glMergeRequest はglab mr listのJSON出力の1要素です
type glMergeRequest struct {
	IID       int64     `json:"iid"`
	Title     string    `json:"title"`
	WebURL    string    `json:"web_url"`
	UpdatedAt time.Time `json:"updated_at"`
	State     string    `json:"state"`
	References struct {
		Full string `json:"full"`
	} `json:"references"`
}

// Detect はオープン中のMRをレビュー候補として列挙します
func (c *GitLabClient) Detect(ctx context.Context) ([]domain.ReviewRequest, error) {
	args := []string{"mr", "list", "--output", "json"}
	if c.project != "" {
		args = append(args, "--repo", c.project)
	}

	out, err := c.runner.Run(ctx, "glab", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge requests: %w", err)
	}

	var mrs []glMergeRequest
	if err := json.Unmarshal(out, &mrs); err != nil {
		return nil, fmt.Errorf("failed to parse glab mr list output: %w", err)
	}

	requests := make([]domain.ReviewRequest, 0, len(mrs))
	for _, mr := range mrs {
		repo := c.project
		if repo == "" && mr.References.Full != "" {
			// references.full は "group/project!42" 形式
			repo = mr.References.Full
			if idx := strings.LastIndexByte(repo, '!'); idx >= 0 {
				repo = repo[:idx]
			}
		}
		requests = append(requests, domain.ReviewRequest{
			Platform:   domain.PlatformGitLab,
			ID:         mr.IID,
			Title:      mr.Title,
			URL:        mr.WebURL,
			Repository: repo,
			UpdatedAt:  mr.UpdatedAt,
			State:      mr.State,
		})
	}

	return requests, nil
}

// FetchDiff はMRのdiff本文を取得します
func (c *GitLabClient) FetchDiff(ctx context.Context, id int64) (string, error) {
	args := []string{"mr", "diff", strconv.FormatInt(id, 10)}
	if c.project != "" {
		args = append(args, "--repo", c.project)
	}

	out, err := c.runner.Run(ctx, "glab", args...)
	if err != nil {
		return "", fmt.Errorf("failed to fetch merge request diff: %w", err)
	}

	return string(out), nil
}

// glMergeRequestView はglab mr viewのJSON出力です
type glMergeRequestView struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      struct {
		Username string `json:"username"`
	} `json:"author"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
}

// FetchInfo はMRのメタデータを取得します
func (c *GitLabClient) FetchInfo(ctx context.Context, id int64) (*domain.RequestInfo, error) {
	args := []string{"mr", "view", strconv.FormatInt(id, 10), "--output", "json"}
	if c.project != "" {
		args = append(args, "--repo", c.project)
	}

	out, err := c.runner.Run(ctx, "glab", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merge request info: %w", err)
	}

	var view glMergeRequestView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("failed to parse glab mr view output: %w", err)
	}

	return &domain.RequestInfo{
		Title:       view.Title,
		Author:      view.Author.Username,
		Branch:      view.SourceBranch,
		BaseBranch:  view.TargetBranch,
		Description: view.Description,
	}, nil
}
