// Package forge はgh/glab CLIをラップしたプラットフォームアダプターです
// フォージAPIへの認証・ページングはCLI側に任せ、ここではJSON出力の
// パースとdiff取得のみを行います
package forge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner は外部コマンドの実行を抽象化します
// テストではフェイク実装に差し替えます
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner はos/execによるCommandRunner実装です
type ExecRunner struct{}

// NewExecRunner は新しいExecRunnerを作成します
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run はコマンドを実行して標準出力を返します
// 失敗時は標準エラー出力をエラーメッセージに含めます
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, detail)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return stdout.Bytes(), nil
}
