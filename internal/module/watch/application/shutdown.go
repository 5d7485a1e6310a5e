package application

import "sync"

// ShutdownSignal は協調的なシャットダウン通知です
// 一度Requestされると恒久的にRequested状態になり、巻き戻せません
// エラーではなく通常の制御フローとして扱います
type ShutdownSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewShutdownSignal は新しいShutdownSignalを作成します
func NewShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{
		ch: make(chan struct{}),
	}
}

// Request はシャットダウンを要求します。複数回呼んでも安全です
func (s *ShutdownSignal) Request() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// Requested はシャットダウンが要求済みかどうかを返します
func (s *ShutdownSignal) Requested() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done はシャットダウン要求で閉じられるチャネルを返します
// インターバルスリープの中断に使います
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.ch
}
