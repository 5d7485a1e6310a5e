package domain

import (
	"errors"
	"strings"
)

// FailureKind は処理失敗の分類を表します
type FailureKind int

const (
	// FailurePermanent は再試行しても解消が見込めない失敗
	// 台帳に記録され、以降のサイクルから除外されます
	FailurePermanent FailureKind = iota
	// FailureTransient は再試行で成功が見込める失敗（ネットワーク/可用性系）
	// 台帳には記録せず、次のサイクルで再度候補になります
	FailureTransient
)

// String はFailureKindの文字列表現を返します
func (k FailureKind) String() string {
	if k == FailureTransient {
		return "transient"
	}
	return "permanent"
}

// transientKeywords は一時的な失敗を示すキーワード/ステータスの固定セット
var transientKeywords = []string{
	"network",
	"timeout",
	"timed out",
	"rate limit",
	"econnreset",
	"enotfound",
	"socket hang up",
	"connection refused",
	"temporarily unavailable",
	"503",
	"502",
	"429",
}

// Classify はエラーメッセージを{transient, permanent}に分類します
// 小文字化したメッセージが既知のキーワードを含む場合のみtransientです
// これはヒューリスティックであり、未知の言い回しの一時的失敗は
// permanentに誤分類されます（その候補は二度と再試行されません）
func Classify(message string) FailureKind {
	lower := strings.ToLower(message)
	for _, keyword := range transientKeywords {
		if strings.Contains(lower, keyword) {
			return FailureTransient
		}
	}
	return FailurePermanent
}

// RetryableError は再試行可否を自己申告するエラーです
// 構造化エラーを返すコラボレーター（OpenAIアダプター等）が実装します
type RetryableError interface {
	error
	Retryable() bool
}

// ClassifyError はエラーを{transient, permanent}に分類します
// エラーチェーンにRetryableErrorがあればそれを優先し、
// なければメッセージのキーワードマッチングにフォールバックします
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailurePermanent
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		if retryable.Retryable() {
			return FailureTransient
		}
		return FailurePermanent
	}

	return Classify(err.Error())
}
