// Package chunker はtiktokenによるトークン境界のチャンク分割を提供します
package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

const (
	// DefaultMaxTokens は1チャンクの最大トークン数
	DefaultMaxTokens = 800
	// DefaultOverlapLines はチャンク間でオーバーラップさせる行数
	DefaultOverlapLines = 10
)

// TokenChunker は行単位でトークン数の上限まで詰めるチャンカーです
type TokenChunker struct {
	encoder      *tiktoken.Tiktoken
	maxTokens    int
	overlapLines int
}

// NewTokenChunker は新しいTokenChunkerを作成します
func NewTokenChunker() (*TokenChunker, error) {
	// cl100k_baseエンコーダを使用（text-embedding-3-smallと互換）
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &TokenChunker{
		encoder:      encoder,
		maxTokens:    DefaultMaxTokens,
		overlapLines: DefaultOverlapLines,
	}, nil
}

var _ domain.Chunker = (*TokenChunker)(nil)

// CountTokens は文字列のトークン数を返します
func (c *TokenChunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// Chunk は内容を行単位で走査し、maxTokensを超えない断片に分割します
// 隣接する断片はoverlapLines行だけ重なります
func (c *TokenChunker) Chunk(content string) ([]domain.Segment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	lineTokens := make([]int, len(lines))
	for i, line := range lines {
		lineTokens[i] = len(c.encoder.Encode(line, nil, nil)) + 1 // 改行分
	}

	var segments []domain.Segment
	start := 0
	for start < len(lines) {
		tokens := 0
		end := start
		for end < len(lines) {
			next := tokens + lineTokens[end]
			// 1行だけで上限を超える場合も単独チャンクとして切り出す
			if next > c.maxTokens && end > start {
				break
			}
			tokens = next
			end++
		}

		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, domain.Segment{
				Content:   text,
				StartLine: start + 1,
				EndLine:   end,
				Tokens:    tokens,
			})
		}

		if end >= len(lines) {
			break
		}

		// オーバーラップ分だけ戻す。前進が保証される範囲で
		nextStart := end - c.overlapLines
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return segments, nil
}
