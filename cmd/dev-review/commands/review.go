package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-review/internal/module/watch/adapter/forge"
	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// reviewOutput は --json 指定時のレビュー結果
type reviewOutput struct {
	Platform string `json:"platform"`
	ID       int64  `json:"id"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Review   string `json:"review"`
}

// errorOutput は --json 指定時のエラー出力
type errorOutput struct {
	Error string `json:"error"`
}

// ReviewAction はPR/MRを1件レビューして結果を表示するコマンドのアクション
func ReviewAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	platformStr := cmd.String("platform")
	id := cmd.Int64("id")
	repo := cmd.String("repo")
	model := cmd.String("model")
	jsonMode := cmd.Bool("json")

	output, err := runReview(ctx, envFile, platformStr, id, repo, model)
	if err != nil {
		if jsonMode {
			if encErr := json.NewEncoder(os.Stdout).Encode(errorOutput{Error: err.Error()}); encErr != nil {
				return encErr
			}
			return cli.Exit("", 1)
		}
		return err
	}

	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(output)
	}

	fmt.Printf("\n=== Review: %s #%d ===\n", output.Platform, output.ID)
	if output.Title != "" {
		fmt.Printf("%s (%s)\n", output.Title, output.Author)
	}
	fmt.Printf("\n%s\n", output.Review)
	return nil
}

func runReview(ctx context.Context, envFile, platformStr string, id int64, repo, model string) (*reviewOutput, error) {
	platform := domain.Platform(platformStr)
	if !platform.Valid() {
		return nil, fmt.Errorf("不明なプラットフォームです: %s", platformStr)
	}

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return nil, err
	}
	defer appCtx.Close()

	if appCtx.Container.Engine == nil {
		return nil, fmt.Errorf("OPENAI_API_KEY が設定されていません")
	}

	fetcher := appCtx.Container.Fetcher
	if repo != "" {
		// --repo指定時はカレントリポジトリではなく指定先に問い合わせる
		runner := forge.NewExecRunner()
		fetcher = forge.NewDiffFetcher(
			forge.NewGitHubClient(runner, repo),
			forge.NewGitLabClient(runner, repo),
		)
	}

	diff, err := fetcher.FetchDiff(ctx, platform, id)
	if err != nil {
		return nil, fmt.Errorf("diffの取得に失敗: %w", err)
	}
	if diff == "" {
		return nil, fmt.Errorf("Failed to fetch diff")
	}

	info, err := fetcher.FetchInfo(ctx, platform, id)
	if err != nil {
		return nil, fmt.Errorf("PR/MR情報の取得に失敗: %w", err)
	}

	reviewContext := fmt.Sprintf("%s #%d: %s (author: %s, %s -> %s)\n%s",
		platform, id, info.Title, info.Author, info.Branch, info.BaseBranch, info.Description)

	result, err := appCtx.Container.Engine.Run(ctx, diff, reviewContext, domain.ModelOverrides{Model: model})
	if err != nil {
		return nil, fmt.Errorf("レビューの生成に失敗: %w", err)
	}

	return &reviewOutput{
		Platform: string(platform),
		ID:       id,
		Title:    info.Title,
		Author:   info.Author,
		Review:   result.Content,
	}, nil
}
