// Package docstore はJSONドキュメント単位の永続化プリミティブを提供します。
// 1ストア = 1ファイルで、読み込み/保存は常にドキュメント全体を対象とします。
// 同一プロセス内の書き込みはミューテックスで直列化されますが、複数プロセスが
// 同じファイルを共有した場合はlast-write-winsになります（楽観ロックなし）。
package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store は1つのJSONファイルに束縛されたドキュメントストアです
type Store[T any] struct {
	path string
	mu   sync.Mutex
}

// New は指定パスのJSONファイルを扱うStoreを作成します
func New[T any](path string) *Store[T] {
	return &Store[T]{path: path}
}

// Path はストアのファイルパスを返します
func (s *Store[T]) Path() string {
	return s.path
}

// Load はドキュメント全体を読み込みます
// ファイルが存在しない場合はゼロ値を返します（初回起動）
func (s *Store[T]) Load() (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := new(T)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to read store file %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store file %s: %w", s.path, err)
	}

	return state, nil
}

// Save はドキュメント全体を書き込みます
// 一時ファイルへ書いてからリネームすることで、途中で落ちても壊れたファイルを残しません
func (s *Store[T]) Save(state *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store file %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file %s: %w", s.path, err)
	}

	return nil
}
