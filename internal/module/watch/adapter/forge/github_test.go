package forge_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jinford/dev-review/internal/module/watch/adapter/forge"
	"github.com/jinford/dev-review/internal/module/watch/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestGitHubClient_Detect(t *testing.T) {
	// Setup
	runner := &fakeRunner{output: []byte(`[
		{
			"number": 42,
			"title": "Add retry logic",
			"url": "https://github.com/acme/api/pull/42",
			"updatedAt": "2025-06-01T10:00:00Z",
			"state": "OPEN",
			"headRepository": {"owner": {"login": "acme"}, "name": "api"}
		}
	]`)}
	client := forge.NewGitHubClient(runner, "acme/api")

	// Execute
	requests, err := client.Detect(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, domain.PlatformGitHub, requests[0].Platform)
	assert.Equal(t, int64(42), requests[0].ID)
	assert.Equal(t, "acme/api", requests[0].Repository)
	assert.Equal(t, "github:acme/api:42", requests[0].DedupKey())

	assert.Equal(t, "gh", runner.name)
	assert.Contains(t, strings.Join(runner.args, " "), "pr list")
	assert.Contains(t, runner.args, "--repo")
}

func TestGitHubClient_Detect_RepoFromHeadRepository(t *testing.T) {
	// Setup: --repo未指定の場合はheadRepositoryからリポジトリ名を補完する
	runner := &fakeRunner{output: []byte(`[
		{"number": 7, "title": "t", "url": "u", "updatedAt": "2025-06-01T10:00:00Z", "state": "OPEN",
		 "headRepository": {"owner": {"login": "acme"}, "name": "api"}}
	]`)}
	client := forge.NewGitHubClient(runner, "")

	// Execute
	requests, err := client.Detect(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "acme/api", requests[0].Repository)
	assert.NotContains(t, runner.args, "--repo")
}

func TestGitHubClient_Detect_CommandFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("gh: command not found")}
	client := forge.NewGitHubClient(runner, "acme/api")

	requests, err := client.Detect(context.Background())

	require.Error(t, err)
	assert.Nil(t, requests)
	assert.Contains(t, err.Error(), "failed to list pull requests")
}

func TestGitHubClient_FetchDiff(t *testing.T) {
	runner := &fakeRunner{output: []byte("diff --git a/main.go b/main.go\n")}
	client := forge.NewGitHubClient(runner, "acme/api")

	diff, err := client.FetchDiff(context.Background(), 42)

	require.NoError(t, err)
	assert.Contains(t, diff, "diff --git")
	assert.Contains(t, runner.args, "42")
}

func TestGitHubClient_FetchInfo(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{
		"title": "Add retry logic",
		"body": "Adds exponential backoff",
		"author": {"login": "alice"},
		"headRefName": "feature/retry",
		"baseRefName": "main"
	}`)}
	client := forge.NewGitHubClient(runner, "acme/api")

	info, err := client.FetchInfo(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, "Add retry logic", info.Title)
	assert.Equal(t, "alice", info.Author)
	assert.Equal(t, "feature/retry", info.Branch)
	assert.Equal(t, "main", info.BaseBranch)
}

func TestGitLabClient_Detect(t *testing.T) {
	// Setup
	runner := &fakeRunner{output: []byte(`[
		{
			"iid": 7,
			"title": "Fix pipeline",
			"web_url": "https://gitlab.com/acme/api/-/merge_requests/7",
			"updated_at": "2025-06-01T10:00:00Z",
			"state": "opened",
			"references": {"full": "acme/api!7"}
		}
	]`)}
	client := forge.NewGitLabClient(runner, "")

	// Execute
	requests, err := client.Detect(context.Background())

	// Assert: references.fullからプロジェクト名が導出される
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, domain.PlatformGitLab, requests[0].Platform)
	assert.Equal(t, int64(7), requests[0].ID)
	assert.Equal(t, "acme/api", requests[0].Repository)
	assert.Equal(t, "glab", runner.name)
}

func TestDiffFetcher_DispatchesByPlatform(t *testing.T) {
	// Setup
	ghRunner := &fakeRunner{output: []byte("github diff")}
	glRunner := &fakeRunner{output: []byte("gitlab diff")}
	fetcher := forge.NewDiffFetcher(
		forge.NewGitHubClient(ghRunner, "acme/api"),
		forge.NewGitLabClient(glRunner, "acme/api"),
	)

	// Execute
	ghDiff, err := fetcher.FetchDiff(context.Background(), domain.PlatformGitHub, 1)
	require.NoError(t, err)
	glDiff, err := fetcher.FetchDiff(context.Background(), domain.PlatformGitLab, 1)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "github diff", ghDiff)
	assert.Equal(t, "gitlab diff", glDiff)
}

func TestDiffFetcher_UnconfiguredPlatform(t *testing.T) {
	fetcher := forge.NewDiffFetcher(forge.NewGitHubClient(&fakeRunner{}, ""), nil)

	_, err := fetcher.FetchDiff(context.Background(), domain.PlatformGitLab, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
