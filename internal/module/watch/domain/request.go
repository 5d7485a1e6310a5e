package domain

import (
	"fmt"
	"time"
)

// Platform はレビュー対象のホスティングプラットフォームを表します
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
)

// Valid は既知のプラットフォームかどうかを返します
func (p Platform) Valid() bool {
	return p == PlatformGitHub || p == PlatformGitLab
}

// ReviewRequest は検出されたレビュー候補（PR/MR）を表します
type ReviewRequest struct {
	Platform   Platform  `json:"platform"`
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Repository string    `json:"repository"`
	UpdatedAt  time.Time `json:"updatedAt"`
	State      string    `json:"state"`
}

// DedupKey は冪等性の単位となる複合キーを返します
// オブジェクトの同一性ではなくこのキーで重複を判定します
func (r ReviewRequest) DedupKey() string {
	return fmt.Sprintf("%s:%s:%d", r.Platform, r.Repository, r.ID)
}

// ReviewOutcome はReviewRequestを処理した終端記録です
type ReviewOutcome struct {
	Key        string    `json:"key"`
	Success    bool      `json:"success"`
	ReviewedAt time.Time `json:"reviewedAt"`
	Error      string    `json:"error,omitempty"`
}

// LedgerState はwatch台帳の永続化ドキュメントです
// dedup key → ReviewOutcome のマップで、エントリは追記のみ
// （成否を問わず一度記録された候補は以降のサイクルから除外される）
type LedgerState struct {
	Outcomes    map[string]*ReviewOutcome `json:"outcomes"`
	LastUpdated time.Time                 `json:"lastUpdated"`
}

// RequestInfo はPR/MRのメタデータです
type RequestInfo struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Branch      string `json:"branch"`
	BaseBranch  string `json:"baseBranch"`
	Description string `json:"description"`
}
