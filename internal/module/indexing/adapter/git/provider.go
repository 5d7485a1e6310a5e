// Package git はgo-gitによるワークスペース解決アダプターです
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	giturls "github.com/whilp/git-urls"

	"github.com/jinford/dev-review/internal/module/indexing/domain"
)

// SourceProvider はジョブ対象リポジトリのclone/fetch/checkoutを行います
type SourceProvider struct {
	// cloneDir はクローン先のベースディレクトリ
	cloneDir string
	// SSH認証用の秘密鍵パス
	sshKeyPath string
	// SSH秘密鍵のパスワード（パスフレーズ）
	sshPassword string
}

// NewSourceProvider は新しいSourceProviderを作成します
func NewSourceProvider(cloneDir, sshKeyPath, sshPassword string) *SourceProvider {
	return &SourceProvider{
		cloneDir:    cloneDir,
		sshKeyPath:  sshKeyPath,
		sshPassword: sshPassword,
	}
}

var _ domain.SourceProvider = (*SourceProvider)(nil)

// URLToDirectoryName はGit URLをディレクトリ名に変換します
// 例: https://github.com/hoge/fuga.git -> github.com/hoge/fuga
// 例: git@github.com:hoge/fuga.git -> github.com/hoge/fuga
func URLToDirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	// ホスト名のみを取得（ポート番号を除外）
	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(hostname, path), nil
}

// Resolve はインデックス対象のワークスペースを解決します
// repoPathが有効なディレクトリならそのまま使います
// そうでなければcloneDir配下にclone（既存ならfetch）してブランチをcheckoutします
func (p *SourceProvider) Resolve(ctx context.Context, repoURL, repoPath, branch string) (string, error) {
	if repoPath != "" {
		if info, err := os.Stat(repoPath); err == nil && info.IsDir() {
			return repoPath, nil
		}
	}

	dirName, err := URLToDirectoryName(repoURL)
	if err != nil {
		return "", err
	}
	workDir := filepath.Join(p.cloneDir, dirName)

	if _, err := os.Stat(filepath.Join(workDir, ".git")); os.IsNotExist(err) {
		if err := p.clone(ctx, repoURL, workDir); err != nil {
			return "", err
		}
	} else {
		if err := p.fetch(ctx, workDir); err != nil {
			return "", err
		}
	}

	if branch != "" {
		if err := p.checkout(workDir, branch); err != nil {
			return "", err
		}
	}

	return workDir, nil
}

// clone はリポジトリをクローンします
func (p *SourceProvider) clone(ctx context.Context, url, destDir string) error {
	auth, err := p.getSSHAuth()
	if err != nil {
		return fmt.Errorf("failed to setup SSH auth: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	_, err = gogit.PlainCloneContext(ctx, destDir, false, &gogit.CloneOptions{
		URL:  url,
		Auth: auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	return nil
}

// fetch はoriginの最新の参照を取得します
func (p *SourceProvider) fetch(ctx context.Context, repoPath string) error {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	auth, err := p.getSSHAuth()
	if err != nil {
		return fmt.Errorf("failed to setup SSH auth: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return fmt.Errorf("failed to get remote: %w", err)
	}

	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		Auth: auth,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to fetch: %w", err)
	}

	return nil
}

// checkout は指定ブランチをチェックアウトします
// ローカルブランチが存在しない場合はリモート追跡ブランチを使います
func (p *SourceProvider) checkout(repoPath, branch string) error {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	})
	if err == nil {
		return nil
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewRemoteReferenceName("origin", branch),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}

	return nil
}

// getSSHAuth はSSH認証を設定します。鍵が未設定の場合はnil（認証なし）を返します
func (p *SourceProvider) getSSHAuth() (transport.AuthMethod, error) {
	if p.sshKeyPath == "" {
		return nil, nil
	}

	keyBytes, err := os.ReadFile(p.sshKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	auth, err := ssh.NewPublicKeys("git", keyBytes, p.sshPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	return auth, nil
}
