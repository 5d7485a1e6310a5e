package engine

import (
	"fmt"
	"strings"
)

const (
	// MaxDiffChars はプロンプトに含めるdiffの最大文字数
	// これを超えるdiffは末尾を切り詰め、その旨を明記します
	MaxDiffChars = 120_000
)

// systemPrompt はレビューエンジンのシステムプロンプト
const systemPrompt = `You are a senior software engineer performing a code review.

Guidelines:
- Review the diff for correctness, readability, and maintainability issues
- Point out bugs, race conditions, and error-handling gaps with file/line references
- Suggest concrete improvements, not generic advice
- Acknowledge what is done well in one short paragraph
- If the diff is fine, say so briefly instead of inventing issues
- Answer in the language the pull request description is written in`

// BuildReviewPrompt はdiffとリクエストのコンテキストからユーザープロンプトを組み立てます
func BuildReviewPrompt(diff, reviewContext string) string {
	truncated := false
	if len(diff) > MaxDiffChars {
		diff = diff[:MaxDiffChars]
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review the following change.\n\nContext: %s\n\n", reviewContext)
	b.WriteString("```diff\n")
	b.WriteString(diff)
	if !strings.HasSuffix(diff, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	if truncated {
		b.WriteString("\n(The diff was truncated because it exceeds the size limit. Review the visible part only.)\n")
	}

	return b.String()
}
