package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// IndexSearchAction はインデックス済みコードをクエリで検索するコマンドのアクション
func IndexSearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	limit := cmd.Int("limit")
	query := cmd.Args().First()

	if query == "" {
		return fmt.Errorf("検索クエリを指定してください")
	}

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.ConnectDatabase(ctx); err != nil {
		return fmt.Errorf("データベースへの接続に失敗: %w", err)
	}

	hits, err := appCtx.Container.SearchService.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("該当するチャンクはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Score", "Repository", "File", "Lines", "Preview")
	for _, hit := range hits {
		table.Append(
			fmt.Sprintf("%.3f", hit.Score),
			truncateString(hit.Chunk.RepoURL, 35),
			truncateString(hit.Chunk.FilePath, 40),
			fmt.Sprintf("%d-%d", hit.Chunk.StartLine, hit.Chunk.EndLine),
			truncateString(firstLine(hit.Chunk.Content), 50),
		)
	}
	table.Render()
	return nil
}

// firstLine は内容の先頭行を返します
func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
