package domain

import (
	"time"
)

// Priority はジョブの優先度を表します
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank は優先度の順位を返します（小さいほど先に処理される）
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid は既知の優先度かどうかを返します
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Status はジョブのライフサイクル状態を表します
// 遷移は pending → processing → {completed, failed} の一方向のみです
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal は終端状態（completed/failed）かどうかを返します
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobResult はインデックスジョブの処理結果を表します
type JobResult struct {
	ChunksAdded    int     `json:"chunksAdded"`
	ChunksRemoved  int     `json:"chunksRemoved"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// Job はインデックス化の作業単位を表します
type Job struct {
	ID           string     `json:"id"`
	Seq          uint64     `json:"seq"`
	RepoURL      string     `json:"repoUrl"`
	RepoPath     string     `json:"repoPath,omitempty"`
	Branch       string     `json:"branch"`
	ChangedFiles []string   `json:"changedFiles,omitempty"`
	FileCount    int        `json:"fileCount"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	EnqueuedAt   time.Time  `json:"enqueuedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Error        string     `json:"error,omitempty"`
	Result       *JobResult `json:"result,omitempty"`
}

// QueueState はジョブキューの永続化ドキュメントです
// Seq はenqueuedAtが同一時刻の場合の決定的なタイブレークに使います
type QueueState struct {
	Jobs        map[string]*Job `json:"jobs"`
	NextSeq     uint64          `json:"nextSeq"`
	LastUpdated time.Time       `json:"lastUpdated"`
}
