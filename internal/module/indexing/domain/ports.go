package domain

import "context"

// SourceProvider はジョブ対象リポジトリの作業コピーを解決するポートです
type SourceProvider interface {
	// Resolve はインデックス対象のワークスペースディレクトリを返します
	// ローカルパスが有効ならそれを使い、なければclone/fetchして
	// 指定ブランチをcheckoutします
	Resolve(ctx context.Context, repoURL, repoPath, branch string) (string, error)
}

// Segment はチャンカーが切り出した1断片です
type Segment struct {
	Content   string
	StartLine int
	EndLine   int
	Tokens    int
}

// Chunker はファイル内容をトークン境界で分割するポートです
type Chunker interface {
	Chunk(content string) ([]Segment, error)
}

// Embedder はテキストをベクトルに変換するポートです
type Embedder interface {
	// BatchEmbed はバッチでEmbeddingを生成します（最大100件）
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension はベクトルの次元数を返します
	Dimension() int
}

// TypeDetector はファイル内容の種別判定のポートです
type TypeDetector interface {
	// IsBinary は内容がバイナリかどうかを判定します
	IsBinary(content []byte) bool
	// DetectContentType はファイルパスと内容からMIMEタイプを判定します
	DetectContentType(path string, content []byte) string
}

// IgnoreMatcher はインデックス対象外パスの判定です
type IgnoreMatcher interface {
	ShouldIgnore(path string) bool
}

// IgnoreMatcherFactory はワークスペースごとのIgnoreMatcherを構築します
// ワークスペース直下の ignore ファイルを読み込むため、解決後に生成します
type IgnoreMatcherFactory func(workspace string) (IgnoreMatcher, error)

// ChunkRepository はチャンクの永続化と類似検索のポートです
type ChunkRepository interface {
	// Replace は対象ファイルのチャンクをトランザクション内で置き換えます
	Replace(ctx context.Context, req ReplaceRequest) (*ReplaceResult, error)
	// Search はクエリベクトルに類似するチャンクを返します
	Search(ctx context.Context, embedding []float32, limit int) ([]*SearchHit, error)
}
