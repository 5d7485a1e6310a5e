package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodeChunk はセマンティックインデックスに格納する単位です
type CodeChunk struct {
	ID          uuid.UUID `json:"id"`
	RepoURL     string    `json:"repoUrl"`
	Branch      string    `json:"branch"`
	FilePath    string    `json:"filePath"`
	Content     string    `json:"content"`
	StartLine   int       `json:"startLine"`
	EndLine     int       `json:"endLine"`
	Tokens      int       `json:"tokens"`
	ContentType string    `json:"contentType"`
	Embedding   []float32 `json:"-"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// FileChunks は1ファイル分のチャンク群です
type FileChunks struct {
	Path   string
	Chunks []*CodeChunk
}

// ReplaceRequest はチャンクストアへの置き換え要求です
// 対象ファイルの既存チャンクを削除して新しいチャンクを挿入します
type ReplaceRequest struct {
	RepoURL string
	Branch  string
	Files   []FileChunks
	// DeleteMissing がtrueの場合、PresentPathsに含まれないファイルの
	// チャンクも削除します（フルウォーク時）
	DeleteMissing bool
	PresentPaths  []string
}

// ReplaceResult は置き換えの結果です
type ReplaceResult struct {
	Added   int
	Removed int
}

// SearchHit は類似検索の1件です
type SearchHit struct {
	Chunk CodeChunk
	// Score はコサイン類似度（1に近いほど類似）
	Score float64
}
