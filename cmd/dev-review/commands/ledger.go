package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// LedgerListAction はレビュー済み候補の一覧を表示するコマンドのアクション
func LedgerListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	outcomes, err := appCtx.Container.Ledger.List()
	if err != nil {
		return fmt.Errorf("台帳の読み込みに失敗: %w", err)
	}

	if len(outcomes) == 0 {
		fmt.Println("台帳は空です")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Success", "Reviewed At", "Error")
	for _, outcome := range outcomes {
		table.Append(
			outcome.Key,
			fmt.Sprintf("%t", outcome.Success),
			outcome.ReviewedAt.Format("2006-01-02 15:04"),
			truncateString(outcome.Error, 50),
		)
	}
	table.Render()
	return nil
}

// LedgerClearAction は台帳を全消去するコマンドのアクション
// 消去後は記録済みの候補もすべて再レビュー対象になります
func LedgerClearAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile, false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Ledger.Clear(); err != nil {
		return fmt.Errorf("台帳の消去に失敗: %w", err)
	}

	fmt.Println("台帳を消去しました")
	return nil
}
