// Package embedder はOpenAI Embeddings APIによるベクトル生成を提供します
package embedder

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

const (
	// DefaultModel はモデル未指定時のデフォルトEmbeddingモデル
	DefaultModel = "text-embedding-3-small"
	// DefaultDimension はOpenAI推奨のデフォルト次元
	DefaultDimension = 1536
	// MaxBatchSize はOpenAI APIの1リクエストあたりの最大件数
	MaxBatchSize = 100
)

// OpenAIEmbedder はOpenAI APIを使用してテキストをベクトルに変換します
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

type embedderOptions struct {
	model     string
	dimension int
}

// Option はOpenAIEmbedderのオプション設定
type Option func(*embedderOptions)

// WithModel はモデル名を上書きします
func WithModel(model string) Option {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithDimension はベクトル次元を上書きします
func WithDimension(dimension int) Option {
	return func(o *embedderOptions) {
		if dimension > 0 {
			o.dimension = dimension
		}
	}
}

// NewOpenAIEmbedder は新しいOpenAIEmbedderを作成します
func NewOpenAIEmbedder(apiKey string, opts ...Option) *OpenAIEmbedder {
	options := embedderOptions{
		model:     DefaultModel,
		dimension: DefaultDimension,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
		),
		model:     options.model,
		dimension: options.dimension,
	}
}

var _ domain.Embedder = (*OpenAIEmbedder)(nil)

// Embed は単一テキストのEmbeddingを生成します
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed はバッチでEmbeddingを生成します（最大100件）
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch size exceeds maximum of %d", MaxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	var embeddings [][]float32
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}

// ModelName はモデル名を返します
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返します
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
