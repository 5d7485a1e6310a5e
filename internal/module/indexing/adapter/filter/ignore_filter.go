// Package filter はインデックス対象外ファイルの除外判定を提供します
package filter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFilter は .gitignore と .devreviewignore のパターンマッチングを提供します
type IgnoreFilter struct {
	patterns *gitignore.GitIgnore
}

// NewIgnoreFilter は新しいIgnoreFilterを作成します
// repoPath 配下の .gitignore と .devreviewignore を読み込みます
func NewIgnoreFilter(repoPath string) (*IgnoreFilter, error) {
	var patterns []string

	for _, name := range []string{".gitignore", ".devreviewignore"} {
		path := filepath.Join(repoPath, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		filePatterns, err := readIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, filePatterns...)
	}

	patterns = append(patterns, defaultIgnorePatterns...)

	return &IgnoreFilter{
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// ShouldIgnore はパスが除外対象かどうかを判定します
func (f *IgnoreFilter) ShouldIgnore(path string) bool {
	if f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(path)
}

// readIgnoreFile は ignore ファイルを読み込んでパターンのスライスを返します
func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// 空行とコメント行をスキップ
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}

// defaultIgnorePatterns はインデックスしても価値のないファイルの既定除外リストです
var defaultIgnorePatterns = []string{
	// Git関連
	".git",
	".gitignore",
	".gitattributes",
	".gitmodules",

	// 依存関係・ビルド成果物
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"out",
	"bin",
	"obj",
	".next",
	".nuxt",

	// IDE/エディタ関連
	".vscode",
	".idea",
	".DS_Store",
	"*.swp",
	"*.swo",
	"*~",

	// ログ・一時ファイル
	"*.log",
	"logs",
	"*.tmp",
	"*.temp",
	"tmp",
	"temp",

	// 環境変数・機密情報
	".env",
	".env.local",
	".env.*.local",
	"*.pem",
	"*.key",
	"*.crt",
	"*.p12",

	// バイナリファイル
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.a",
	"*.o",
	"*.jar",
	"*.war",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.bz2",
	"*.7z",
	"*.rar",

	// 画像・メディアファイル
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.bmp",
	"*.ico",
	"*.svg",
	"*.webp",
	"*.mp4",
	"*.avi",
	"*.mov",
	"*.mp3",
	"*.wav",

	// フォント
	"*.ttf",
	"*.otf",
	"*.woff",
	"*.woff2",
	"*.eot",

	// データベースファイル
	"*.db",
	"*.sqlite",
	"*.sqlite3",

	// テストカバレッジ・キャッシュ
	"coverage",
	".coverage",
	"*.lcov",
	".cache",
	"*.cache",
	"__pycache__",
	"*.pyc",
	".pytest_cache",

	// ロックファイル
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Cargo.lock",
}
