// Package application はインデックス更新と類似検索のユースケースを提供します
package application

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
	queuedomain "github.com/jinford/dev-review/internal/module/queue/domain"
)

const (
	// embedBatchSize はEmbedding APIへ一度に送るチャンク数の上限
	embedBatchSize = 100
	// maxFileSize はインデックス対象ファイルのサイズ上限（1MB）
	maxFileSize = 1 << 20
)

// IndexService はリポジトリのコードチャンクをセマンティックインデックスに反映します
type IndexService struct {
	provider      domain.SourceProvider
	chunker       domain.Chunker
	embedder      domain.Embedder
	repository    domain.ChunkRepository
	detector      domain.TypeDetector
	matcherForDir domain.IgnoreMatcherFactory
	log           *slog.Logger
}

// NewIndexService は新しいIndexServiceを作成します
func NewIndexService(
	provider domain.SourceProvider,
	chunker domain.Chunker,
	embedder domain.Embedder,
	repository domain.ChunkRepository,
	detector domain.TypeDetector,
	matcherForDir domain.IgnoreMatcherFactory,
	log *slog.Logger,
) *IndexService {
	return &IndexService{
		provider:      provider,
		chunker:       chunker,
		embedder:      embedder,
		repository:    repository,
		detector:      detector,
		matcherForDir: matcherForDir,
		log:           log,
	}
}

var _ queuedomain.Indexer = (*IndexService)(nil)

// ProcessJob はキューのジョブを1件処理し、対象ファイルのチャンクを置き換えます
// ChangedFilesが指定されていればそのファイルのみ、なければリポジトリ全体を対象にします
func (s *IndexService) ProcessJob(ctx context.Context, job *queuedomain.Job) (*queuedomain.JobResult, error) {
	started := time.Now()

	workspace, err := s.provider.Resolve(ctx, job.RepoURL, job.RepoPath, job.Branch)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	matcher, err := s.matcherForDir(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to build ignore matcher: %w", err)
	}

	fullWalk := len(job.ChangedFiles) == 0
	var paths []string
	if fullWalk {
		paths, err = s.walkFiles(workspace, matcher)
		if err != nil {
			return nil, err
		}
	} else {
		for _, path := range job.ChangedFiles {
			if !matcher.ShouldIgnore(path) {
				paths = append(paths, path)
			}
		}
	}

	s.log.Info("indexing repository",
		slog.String("repoUrl", job.RepoURL),
		slog.String("branch", job.Branch),
		slog.Int("files", len(paths)),
		slog.Bool("fullWalk", fullWalk),
	)

	files, presentPaths, err := s.chunkFiles(ctx, workspace, paths, job)
	if err != nil {
		return nil, err
	}

	if err := s.embedFiles(ctx, files); err != nil {
		return nil, err
	}

	result, err := s.repository.Replace(ctx, domain.ReplaceRequest{
		RepoURL:       job.RepoURL,
		Branch:        job.Branch,
		Files:         files,
		DeleteMissing: fullWalk,
		PresentPaths:  presentPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace chunks: %w", err)
	}

	elapsed := time.Since(started)
	s.log.Info("indexing completed",
		slog.String("repoUrl", job.RepoURL),
		slog.Int("added", result.Added),
		slog.Int("removed", result.Removed),
		slog.Duration("elapsed", elapsed),
	)

	return &queuedomain.JobResult{
		ChunksAdded:    result.Added,
		ChunksRemoved:  result.Removed,
		ElapsedSeconds: elapsed.Seconds(),
	}, nil
}

// walkFiles はワークスペース全体を走査して対象ファイルの相対パスを集めます
func (s *IndexService) walkFiles(workspace string, matcher domain.IgnoreMatcher) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(workspace, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel != "." && matcher.ShouldIgnore(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || matcher.ShouldIgnore(rel) {
			return nil
		}

		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	return paths, nil
}

// chunkFiles は対象ファイルを読み込んでチャンクに分割します
// 読めないファイル・バイナリ・サイズ超過は警告ログを出してスキップします
func (s *IndexService) chunkFiles(ctx context.Context, workspace string, paths []string, job *queuedomain.Job) ([]domain.FileChunks, []string, error) {
	var files []domain.FileChunks
	var presentPaths []string

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		abs := filepath.Join(workspace, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			// 変更ファイル指定のうち削除されたものはチャンクなしで置き換える
			if os.IsNotExist(err) {
				files = append(files, domain.FileChunks{Path: rel})
				continue
			}
			return nil, nil, fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		if info.Size() > maxFileSize {
			s.log.Warn("skipping oversized file", slog.String("path", rel), slog.Int64("size", info.Size()))
			continue
		}

		content, err := os.ReadFile(abs)
		if err != nil {
			s.log.Warn("skipping unreadable file", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}

		presentPaths = append(presentPaths, rel)

		// バイナリはチャンクなしで置き換え、既存チャンクがあれば消えるようにする
		if s.detector.IsBinary(content) {
			files = append(files, domain.FileChunks{Path: rel})
			continue
		}

		segments, err := s.chunker.Chunk(string(content))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to chunk %s: %w", rel, err)
		}

		contentType := s.detector.DetectContentType(rel, content)
		now := time.Now()

		file := domain.FileChunks{Path: rel}
		for _, seg := range segments {
			file.Chunks = append(file.Chunks, &domain.CodeChunk{
				ID:          uuid.New(),
				RepoURL:     job.RepoURL,
				Branch:      job.Branch,
				FilePath:    rel,
				Content:     seg.Content,
				StartLine:   seg.StartLine,
				EndLine:     seg.EndLine,
				Tokens:      seg.Tokens,
				ContentType: contentType,
				IndexedAt:   now,
			})
		}
		files = append(files, file)
	}

	return files, presentPaths, nil
}

// embedFiles は全チャンクのEmbeddingをバッチで生成して埋め込みます
func (s *IndexService) embedFiles(ctx context.Context, files []domain.FileChunks) error {
	var all []*domain.CodeChunk
	for _, file := range files {
		all = append(all, file.Chunks...)
	}

	for start := 0; start < len(all); start += embedBatchSize {
		end := min(start+embedBatchSize, len(all))

		texts := make([]string, 0, end-start)
		for _, chunk := range all[start:end] {
			texts = append(texts, chunk.Content)
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}

		for i, vector := range vectors {
			all[start+i].Embedding = vector
		}
	}

	return nil
}
