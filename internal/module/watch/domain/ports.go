package domain

import (
	"context"
)

// Detector はプラットフォームごとのレビュー候補検出ポートです
// 個々のプラットフォームの失敗はDetectの戻り値エラーとして返し、
// 呼び出し側（PollCycleController）が収集します
type Detector interface {
	// Platform は検出対象のプラットフォームを返します
	Platform() Platform
	// Detect はレビュー待ちの候補を列挙します
	Detect(ctx context.Context) ([]ReviewRequest, error)
}

// DiffFetcher はPR/MRのdiffとメタデータを取得するポートです
type DiffFetcher interface {
	// FetchDiff はdiff本文を取得します。対象が存在しない/空の場合は
	// 空文字列を返します
	FetchDiff(ctx context.Context, platform Platform, id int64) (string, error)
	// FetchInfo はPR/MRのメタデータを取得します
	FetchInfo(ctx context.Context, platform Platform, id int64) (*RequestInfo, error)
}

// ModelOverrides はレビューエンジンのモデル設定の上書きです
type ModelOverrides struct {
	Model string
}

// ReviewResult はレビューエンジンの出力です
type ReviewResult struct {
	Content string
}

// ReviewEngine はdiffとコンテキストからレビューを生成するポートです
type ReviewEngine interface {
	Run(ctx context.Context, diff, reviewContext string, overrides ModelOverrides) (*ReviewResult, error)
}

// Selector はフィルタ済み候補からレビュー対象を選ぶポートです
// インタラクティブモードではユーザーに問い合わせ、自動モードでは全件選択します
type Selector interface {
	Select(requests []ReviewRequest) ([]ReviewRequest, error)
}

// LedgerStore は台帳状態の永続化ポートです
type LedgerStore interface {
	Load() (*LedgerState, error)
	Save(state *LedgerState) error
	Path() string
}
