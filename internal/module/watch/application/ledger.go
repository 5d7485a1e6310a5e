package application

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// WatchLedger は処理済みレビュー候補の冪等性台帳です
// dedup keyごとに終端結果を1件保持し、成否を問わず一度記録された候補は
// FilterEligibleで恒久的に除外されます。自動的な剪定は行いません
type WatchLedger struct {
	store domain.LedgerStore
	log   *slog.Logger
	mu    sync.Mutex
}

// NewWatchLedger は新しいWatchLedgerを作成します
func NewWatchLedger(store domain.LedgerStore, log *slog.Logger) *WatchLedger {
	if log == nil {
		log = slog.Default()
	}
	return &WatchLedger{
		store: store,
		log:   log,
	}
}

// Path は台帳の永続化ファイルパスを返します
func (l *WatchLedger) Path() string {
	return l.store.Path()
}

// Has は指定キーの記録が存在するかどうかを返します
func (l *WatchLedger) Has(key string) (bool, error) {
	state, err := l.store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load watch ledger: %w", err)
	}
	_, ok := state.Outcomes[key]
	return ok, nil
}

// Get は指定キーの記録を返します。存在しない場合は (nil, nil) です
func (l *WatchLedger) Get(key string) (*domain.ReviewOutcome, error) {
	state, err := l.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load watch ledger: %w", err)
	}
	return state.Outcomes[key], nil
}

// FilterEligible は台帳に記録のない候補のみを返します
// 記録のsuccess値は問いません（失敗記録も恒久的な除外対象）
func (l *WatchLedger) FilterEligible(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error) {
	state, err := l.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load watch ledger: %w", err)
	}

	eligible := make([]domain.ReviewRequest, 0, len(requests))
	for _, req := range requests {
		if _, seen := state.Outcomes[req.DedupKey()]; seen {
			continue
		}
		eligible = append(eligible, req)
	}

	return eligible, nil
}

// Record は終端結果を記録します
// 既存エントリは上書きされます（手動リトライ時のみ発生する想定）
func (l *WatchLedger) Record(outcome domain.ReviewOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load watch ledger: %w", err)
	}
	if state.Outcomes == nil {
		state.Outcomes = make(map[string]*domain.ReviewOutcome)
	}

	if outcome.ReviewedAt.IsZero() {
		outcome.ReviewedAt = time.Now()
	}

	state.Outcomes[outcome.Key] = &outcome
	state.LastUpdated = time.Now()

	if err := l.store.Save(state); err != nil {
		return fmt.Errorf("failed to save watch ledger: %w", err)
	}

	return nil
}

// List は全記録をreviewedAt昇順で返します
func (l *WatchLedger) List() ([]*domain.ReviewOutcome, error) {
	state, err := l.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load watch ledger: %w", err)
	}

	outcomes := make([]*domain.ReviewOutcome, 0, len(state.Outcomes))
	for _, outcome := range state.Outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].ReviewedAt.Before(outcomes[j].ReviewedAt)
	})

	return outcomes, nil
}

// Clear は台帳全体をリセットします
// エントリ単位のリセット手段は存在しないため、恒久失敗した候補を
// 再度レビューするにはこの全消去しかありません
func (l *WatchLedger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := &domain.LedgerState{
		Outcomes:    make(map[string]*domain.ReviewOutcome),
		LastUpdated: time.Now(),
	}

	if err := l.store.Save(state); err != nil {
		return fmt.Errorf("failed to save watch ledger: %w", err)
	}

	l.log.Info("Watch ledger cleared", "path", l.store.Path())

	return nil
}
