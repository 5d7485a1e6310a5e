// Package selector はフィルタ済みレビュー候補の選択アダプターです
package selector

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// AutoSelector は全候補を無条件に選択します（--auto / 非対話環境用）
type AutoSelector struct{}

// NewAutoSelector は新しいAutoSelectorを作成します
func NewAutoSelector() *AutoSelector {
	return &AutoSelector{}
}

var _ domain.Selector = (*AutoSelector)(nil)

// Select は渡された候補をそのまま返します
func (s *AutoSelector) Select(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error) {
	return requests, nil
}

// InteractiveSelector は候補ごとにユーザーへレビュー実行可否を問い合わせます
type InteractiveSelector struct{}

// NewInteractiveSelector は新しいInteractiveSelectorを作成します
func NewInteractiveSelector() *InteractiveSelector {
	return &InteractiveSelector{}
}

var _ domain.Selector = (*InteractiveSelector)(nil)

// Select は候補ごとに確認プロンプトを表示し、承認されたものだけを返します
// 全件スキップ（0件選択）も有効な結果です
func (s *InteractiveSelector) Select(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error) {
	selected := make([]domain.ReviewRequest, 0, len(requests))

	for _, req := range requests {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Review %s #%d %q", req.Repository, req.ID, req.Title),
			IsConfirm: true,
		}

		_, err := prompt.Run()
		if err != nil {
			// "n" や Ctrl+C は拒否として扱い、その候補をスキップする
			if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
				continue
			}
			return nil, fmt.Errorf("selection prompt failed: %w", err)
		}

		selected = append(selected, req)
	}

	return selected, nil
}
