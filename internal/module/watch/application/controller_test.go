package application_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jinford/dev-review/internal/module/watch/application"
	"github.com/jinford/dev-review/internal/module/watch/domain"
	testutil "github.com/jinford/dev-review/internal/module/watch/testing"
	"github.com/jinford/dev-review/internal/platform/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	detectors []domain.Detector
	ledger    *application.WatchLedger
	fetcher   *testutil.MockDiffFetcher
	engine    *testutil.MockReviewEngine
	selector  *testutil.MockSelector
	shutdown  *application.ShutdownSignal
	out       *bytes.Buffer
}

func (f *controllerFixture) build() *application.PollCycleController {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return application.NewPollCycleController(
		f.detectors,
		f.ledger,
		f.fetcher,
		f.engine,
		f.selector,
		f.shutdown,
		domain.ModelOverrides{},
		f.out,
		log,
	)
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	store := docstore.New[domain.LedgerState](filepath.Join(t.TempDir(), "watch-ledger.json"))
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return &controllerFixture{
		ledger:   application.NewWatchLedger(store, log),
		fetcher:  &testutil.MockDiffFetcher{},
		engine:   &testutil.MockReviewEngine{},
		selector: &testutil.MockSelector{},
		shutdown: application.NewShutdownSignal(),
		out:      &bytes.Buffer{},
	}
}

func githubRequest(id int64) domain.ReviewRequest {
	return domain.ReviewRequest{
		Platform:   domain.PlatformGitHub,
		ID:         id,
		Title:      "change something",
		URL:        "https://github.com/acme/api/pull/1",
		Repository: "acme/api",
		State:      "open",
	}
}

func TestPollCycleController_SuccessRecordsOutcome(t *testing.T) {
	// Setup
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff --git a/main.go b/main.go", nil
	}
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		assert.Contains(t, reviewContext, "acme/api#1")
		return &domain.ReviewResult{Content: "LGTM with nits"}, nil
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.Detected)
	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, report.Interrupted)
	assert.Contains(t, f.out.String(), "LGTM with nits")

	outcome, err := f.ledger.Get("github:acme/api:1")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.Success)
}

func TestPollCycleController_SecondCycleSkipsRecordedRequest(t *testing.T) {
	// Setup: 2サイクル連続で同じ候補が検出される
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff", nil
	}
	var engineCalls atomic.Int32
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		engineCalls.Add(1)
		return &domain.ReviewResult{Content: "ok"}, nil
	}
	controller := f.build()

	// Execute: サイクル1は成功、サイクル2は再処理しない
	first, err := controller.RunCycle(context.Background())
	require.NoError(t, err)
	second, err := controller.RunCycle(context.Background())
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, first.Succeeded)
	assert.Equal(t, 1, second.Detected)
	assert.Equal(t, 0, second.Eligible)
	assert.Equal(t, 0, second.Selected)
	assert.Equal(t, int32(1), engineCalls.Load())
}

func TestPollCycleController_TransientFailureLeavesNoLedgerEntry(t *testing.T) {
	// Setup
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff", nil
	}
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		return nil, errors.New("rate limit exceeded")
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert: 台帳に書かれず、次サイクルでも候補のまま
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedTransient)
	assert.Equal(t, 0, report.FailedPermanent)

	has, err := f.ledger.Has("github:acme/api:1")
	require.NoError(t, err)
	assert.False(t, has)

	second, err := controller.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Eligible)
}

func TestPollCycleController_PermanentFailureRecordsOutcome(t *testing.T) {
	// Setup
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff", nil
	}
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		return nil, errors.New("invalid credentials")
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert: success=falseで記録され、以降のサイクルから除外される
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedPermanent)

	outcome, err := f.ledger.Get("github:acme/api:1")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "invalid credentials")

	second, err := controller.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Eligible)
}

func TestPollCycleController_AbsentDiffIsPermanentFailure(t *testing.T) {
	// Setup: diffが空 ⇒ "Failed to fetch diff" で失敗扱い
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "", nil
	}
	var engineCalled atomic.Bool
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		engineCalled.Store(true)
		return &domain.ReviewResult{}, nil
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedPermanent)
	assert.False(t, engineCalled.Load())

	outcome, err := f.ledger.Get("github:acme/api:1")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Success)
	assert.Equal(t, "Failed to fetch diff", outcome.Error)
}

func TestPollCycleController_TransientFetchErrorIsRetried(t *testing.T) {
	// Setup: diff取得がネットワークエラー ⇒ 一時的失敗として台帳に書かない
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1)}, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedTransient)

	has, err := f.ledger.Has("github:acme/api:1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPollCycleController_DetectionFailureDoesNotSuppressOtherPlatform(t *testing.T) {
	// Setup: gitlabの検出が失敗してもgithubの候補は処理される
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{
		&testutil.MockDetector{
			PlatformValue: domain.PlatformGitHub,
			DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
				return []domain.ReviewRequest{githubRequest(1)}, nil
			},
		},
		&testutil.MockDetector{
			PlatformValue: domain.PlatformGitLab,
			DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
				return nil, errors.New("glab: command not found")
			},
		},
	}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff", nil
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.Detected)
	require.Len(t, report.DetectionErrors, 1)
	assert.Equal(t, domain.PlatformGitLab, report.DetectionErrors[0].Platform)
	assert.Equal(t, 1, report.Succeeded)
}

func TestPollCycleController_SelectorCanChooseNone(t *testing.T) {
	// Setup
	f := newControllerFixture(t)
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return []domain.ReviewRequest{githubRequest(1), githubRequest(2)}, nil
		},
	}}
	f.selector.SelectFunc = func(requests []domain.ReviewRequest) ([]domain.ReviewRequest, error) {
		return nil, nil
	}
	var engineCalled atomic.Bool
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		engineCalled.Store(true)
		return &domain.ReviewResult{}, nil
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, report.Eligible)
	assert.Equal(t, 0, report.Selected)
	assert.False(t, engineCalled.Load())
}

func TestPollCycleController_ShutdownStopsRemainingRequests(t *testing.T) {
	// Setup: 選択された5件のうち3件目の処理中にシャットダウン要求が届く
	f := newControllerFixture(t)
	requests := make([]domain.ReviewRequest, 0, 5)
	for i := int64(1); i <= 5; i++ {
		requests = append(requests, githubRequest(i))
	}
	f.detectors = []domain.Detector{&testutil.MockDetector{
		PlatformValue: domain.PlatformGitHub,
		DetectFunc: func(ctx context.Context) ([]domain.ReviewRequest, error) {
			return requests, nil
		},
	}}
	f.fetcher.FetchDiffFunc = func(ctx context.Context, platform domain.Platform, id int64) (string, error) {
		return "diff", nil
	}
	var engineCalls atomic.Int32
	f.engine.RunFunc = func(ctx context.Context, diff, reviewContext string, overrides domain.ModelOverrides) (*domain.ReviewResult, error) {
		if engineCalls.Add(1) == 3 {
			// 3件目の処理中にシグナルが届いたことを模す
			f.shutdown.Request()
		}
		return &domain.ReviewResult{Content: "ok"}, nil
	}
	controller := f.build()

	// Execute
	report, err := controller.RunCycle(context.Background())

	// Assert: 処理中の3件目は完走し、4件目以降は開始されない
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, int32(3), engineCalls.Load())

	// 完了済みの結果は巻き戻されない
	for i := int64(1); i <= 3; i++ {
		outcome, err := f.ledger.Get(requests[i-1].DedupKey())
		require.NoError(t, err)
		require.NotNil(t, outcome, "outcome for request %d should be recorded", i)
		assert.True(t, outcome.Success)
	}
	for i := int64(4); i <= 5; i++ {
		has, err := f.ledger.Has(requests[i-1].DedupKey())
		require.NoError(t, err)
		assert.False(t, has, "request %d should not have been processed", i)
	}
}
