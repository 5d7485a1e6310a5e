// Package engine はOpenAI Chat Completions APIによるレビューエンジン実装です
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set")
)

// APIError はOpenAI API呼び出しの失敗をHTTPステータス付きで表します
// domain.RetryableErrorを実装し、ErrorClassifierのキーワードマッチングより
// 優先して分類されます
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API call failed (status %d): %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable はレート制限とサーバーエラーを再試行可能として報告します
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

var _ domain.RetryableError = (*APIError)(nil)

// OpenAIEngine はOpenAI APIを使用したReviewEngine実装です
type OpenAIEngine struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIEngine はAPIキーとモデルを指定してOpenAIEngineを作成します
func NewOpenAIEngine(apiKey, model string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIEngine{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定します
func (e *OpenAIEngine) SetTimeout(timeout time.Duration) {
	e.timeout = timeout
}

var _ domain.ReviewEngine = (*OpenAIEngine)(nil)

// Run はdiffとコンテキストからレビューを生成します
func (e *OpenAIEngine) Run(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	model := e.model
	if overrides.Model != "" {
		model = overrides.Model
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildReviewPrompt(diff, reviewContext)),
		},
	}

	completion, err := e.completeWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return &domain.ReviewResult{
		Content: completion.Choices[0].Message.Content,
	}, nil
}

// completeWithRetry はレート制限エラー時にExponential Backoffでリトライします
func (e *OpenAIEngine) completeWithRetry(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDuration):
				// バックオフ後、再試行
			}
		}

		completion, err := e.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = wrapAPIError(err)

			// レート制限のみSDK呼び出しレベルでリトライする
			// それ以外の再試行可否の判断は呼び出し側のErrorClassifierに委ねる
			if isRateLimitError(err) {
				continue
			}

			return nil, lastErr
		}

		return completion, nil
	}

	// 最大リトライ回数を超過
	return nil, lastErr
}

// wrapAPIError はSDKのエラーをステータスコード付きのAPIErrorに包みます
func wrapAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return fmt.Errorf("OpenAI API call failed: %w", err)
}

// isRateLimitError はエラーがレート制限エラーかどうかを判定します
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
