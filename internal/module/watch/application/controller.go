package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jinford/dev-review/internal/module/watch/domain"
)

// CycleState は1ポーリングサイクル内の状態を表します
type CycleState string

const (
	StateIdle       CycleState = "idle"
	StateDetecting  CycleState = "detecting"
	StateFiltering  CycleState = "filtering"
	StateSelecting  CycleState = "selecting"
	StateProcessing CycleState = "processing"
)

// DetectionError はプラットフォーム単位の検出失敗です
// サイクルを中断せず収集され、他のプラットフォームの結果は生かされます
type DetectionError struct {
	Platform domain.Platform
	Err      error
}

// CycleReport は1サイクルの実行結果です
type CycleReport struct {
	Detected        int
	DetectionErrors []DetectionError
	Eligible        int
	Selected        int
	Succeeded       int
	FailedPermanent int
	FailedTransient int
	// Interrupted はシャットダウン要求により残りの処理を打ち切ったかどうか
	Interrupted bool
}

// PollCycleController は detect → filter → select → process の
// 1サイクルを駆動します
type PollCycleController struct {
	detectors []domain.Detector
	ledger    *WatchLedger
	fetcher   domain.DiffFetcher
	engine    domain.ReviewEngine
	selector  domain.Selector
	shutdown  *ShutdownSignal
	overrides domain.ModelOverrides
	out       io.Writer
	log       *slog.Logger

	mu    sync.Mutex
	state CycleState
}

// NewPollCycleController は新しいPollCycleControllerを作成します
func NewPollCycleController(
	detectors []domain.Detector,
	ledger *WatchLedger,
	fetcher domain.DiffFetcher,
	engine domain.ReviewEngine,
	selector domain.Selector,
	shutdown *ShutdownSignal,
	overrides domain.ModelOverrides,
	out io.Writer,
	log *slog.Logger,
) *PollCycleController {
	if log == nil {
		log = slog.Default()
	}
	return &PollCycleController{
		detectors: detectors,
		ledger:    ledger,
		fetcher:   fetcher,
		engine:    engine,
		selector:  selector,
		shutdown:  shutdown,
		overrides: overrides,
		out:       out,
		log:       log,
		state:     StateIdle,
	}
}

// State は現在のサイクル状態を返します
func (c *PollCycleController) State() CycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *PollCycleController) setState(state CycleState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// RunCycle は1ポーリングサイクルを実行します
// 候補単位の失敗はサイクルを中断しません。サイクル全体の失敗も
// 呼び出し側（WatchLoop）でログされるのみで、ループは継続します
func (c *PollCycleController) RunCycle(ctx context.Context) (*CycleReport, error) {
	defer c.setState(StateIdle)

	report := &CycleReport{}

	// Detect: 全プラットフォームを並行に呼び出し、部分的な失敗を収集する
	c.setState(StateDetecting)
	candidates, detectionErrors := c.detect(ctx)
	report.Detected = len(candidates)
	report.DetectionErrors = detectionErrors

	for _, de := range detectionErrors {
		c.log.Warn("Detection failed", "platform", de.Platform, "error", de.Err)
	}

	// Filter: 台帳に記録済みの候補を除外する
	c.setState(StateFiltering)
	eligible, err := c.ledger.FilterEligible(candidates)
	if err != nil {
		return report, fmt.Errorf("failed to filter candidates: %w", err)
	}
	report.Eligible = len(eligible)

	if len(eligible) == 0 {
		c.log.Debug("No eligible review requests", "detected", report.Detected)
		return report, nil
	}

	// Select: インタラクティブモードでは問い合わせ、自動モードでは全件
	c.setState(StateSelecting)
	selected, err := c.selector.Select(eligible)
	if err != nil {
		return report, fmt.Errorf("failed to select review requests: %w", err)
	}
	report.Selected = len(selected)

	// Process: 選択された候補を直列に処理する
	// 並行処理しないことでAIエンジンの同時負荷を1件に抑え、
	// シャットダウン確認を候補間で正確に行えるようにする
	c.setState(StateProcessing)
	for _, req := range selected {
		c.processRequest(ctx, req, report)

		if c.shutdown.Requested() {
			report.Interrupted = true
			c.log.Info("Shutdown requested, stopping remaining requests in this cycle",
				"processed", report.Succeeded+report.FailedPermanent+report.FailedTransient,
				"selected", report.Selected,
			)
			break
		}
	}

	return report, nil
}

// detect は全プラットフォームのDetectorを並行に呼び出します
// あるプラットフォームの失敗が他の結果を抑制することはありません
func (c *PollCycleController) detect(ctx context.Context) ([]domain.ReviewRequest, []DetectionError) {
	var (
		mu         sync.Mutex
		candidates []domain.ReviewRequest
		failures   []DetectionError
		wg         sync.WaitGroup
	)

	for _, detector := range c.detectors {
		wg.Add(1)
		go func(d domain.Detector) {
			defer wg.Done()

			found, err := d.Detect(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, DetectionError{Platform: d.Platform(), Err: err})
				return
			}
			candidates = append(candidates, found...)
		}(detector)
	}

	wg.Wait()

	return candidates, failures
}

// processRequest は1候補を処理し、結果をレポートと台帳に反映します
func (c *PollCycleController) processRequest(ctx context.Context, req domain.ReviewRequest, report *CycleReport) {
	key := req.DedupKey()

	c.log.Info("Processing review request",
		"key", key,
		"title", req.Title,
		"url", req.URL,
	)

	err := c.review(ctx, req)
	if err == nil {
		report.Succeeded++
		if recordErr := c.ledger.Record(domain.ReviewOutcome{
			Key:        key,
			Success:    true,
			ReviewedAt: time.Now(),
		}); recordErr != nil {
			c.log.Error("Failed to record review outcome", "key", key, "error", recordErr)
		}
		return
	}

	kind := domain.ClassifyError(err)
	if kind == domain.FailureTransient {
		// 一時的な失敗は台帳に書かない。候補は次のサイクルで再び適格になる
		// （固定ポーリング間隔以外のバックオフはない）
		report.FailedTransient++
		c.log.Warn("Review failed with transient error, will retry next cycle",
			"key", key,
			"error", err,
		)
		return
	}

	report.FailedPermanent++
	c.log.Error("Review failed permanently, excluding from future cycles",
		"key", key,
		"error", err,
	)
	if recordErr := c.ledger.Record(domain.ReviewOutcome{
		Key:        key,
		Success:    false,
		ReviewedAt: time.Now(),
		Error:      err.Error(),
	}); recordErr != nil {
		c.log.Error("Failed to record review outcome", "key", key, "error", recordErr)
	}
}

// review はdiffを取得してレビューエンジンを実行し、結果を出力します
func (c *PollCycleController) review(ctx context.Context, req domain.ReviewRequest) error {
	diff, err := c.fetcher.FetchDiff(ctx, req.Platform, req.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch diff: %w", err)
	}
	if diff == "" {
		return fmt.Errorf("Failed to fetch diff")
	}

	result, err := c.engine.Run(ctx, diff, describeRequest(req), c.overrides)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n=== Review: %s (%s) ===\n%s\n", req.Title, req.URL, result.Content)

	return nil
}

// describeRequest はレビューエンジンに渡すコンテキスト文字列を組み立てます
func describeRequest(req domain.ReviewRequest) string {
	return fmt.Sprintf("%s %s#%d: %s (%s)", req.Platform, req.Repository, req.ID, req.Title, req.URL)
}
