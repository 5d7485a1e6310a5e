package application_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jinford/dev-review/internal/module/queue/application"
	"github.com/jinford/dev-review/internal/module/queue/domain"
	testutil "github.com/jinford/dev-review/internal/module/queue/testing"
	"github.com/jinford/dev-review/internal/platform/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) (*application.JobScheduler, *docstore.Store[domain.QueueState]) {
	t.Helper()
	store := docstore.New[domain.QueueState](filepath.Join(t.TempDir(), "jobs.json"))
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return application.NewJobScheduler(store, log), store
}

func TestJobScheduler_Enqueue_Defaults(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	// Execute
	job, err := scheduler.Enqueue(application.EnqueueInput{
		RepoURL:   "git@github.com:acme/api.git",
		Branch:    "main",
		FileCount: 12,
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, domain.PriorityNormal, job.Priority)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.False(t, job.EnqueuedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestJobScheduler_Enqueue_SeqIncrements(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	// Execute
	first, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)
	second, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "dev"})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first.Seq+1, second.Seq)
}

func TestJobScheduler_Enqueue_InvalidPriority(t *testing.T) {
	scheduler, _ := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{
		RepoURL:  "u",
		Branch:   "main",
		Priority: domain.Priority("urgent"),
	})

	require.Error(t, err)
	assert.Nil(t, job)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestJobScheduler_GetNextPending_PriorityOrder(t *testing.T) {
	// Setup: A(low, t=0) → B(high, t=1) → C(normal, t=2)
	scheduler, _ := newScheduler(t)

	jobA, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "a", Priority: domain.PriorityLow})
	require.NoError(t, err)
	jobB, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "b", Priority: domain.PriorityHigh})
	require.NoError(t, err)
	jobC, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "c", Priority: domain.PriorityNormal})
	require.NoError(t, err)

	// Execute & Assert: B → C → A → none
	next, err := scheduler.GetNextPending()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, jobB.ID, next.ID)
	require.NoError(t, scheduler.MarkCompleted(jobB.ID, nil))

	next, err = scheduler.GetNextPending()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, jobC.ID, next.ID)
	require.NoError(t, scheduler.MarkCompleted(jobC.ID, nil))

	next, err = scheduler.GetNextPending()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, jobA.ID, next.ID)
	require.NoError(t, scheduler.MarkCompleted(jobA.ID, nil))

	next, err = scheduler.GetNextPending()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestJobScheduler_GetNextPending_EarliestWithinTier(t *testing.T) {
	// Setup: 同一優先度内ではenqueuedAtが最も早いジョブが先
	scheduler, store := newScheduler(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	state := &domain.QueueState{
		Jobs: map[string]*domain.Job{
			"newer": {ID: "newer", Seq: 0, Priority: domain.PriorityNormal, Status: domain.StatusPending, EnqueuedAt: base.Add(time.Hour)},
			"older": {ID: "older", Seq: 1, Priority: domain.PriorityNormal, Status: domain.StatusPending, EnqueuedAt: base},
		},
		NextSeq: 2,
	}
	require.NoError(t, store.Save(state))

	// Execute
	next, err := scheduler.GetNextPending()

	// Assert
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "older", next.ID)
}

func TestJobScheduler_GetNextPending_SeqBreaksTimestampTie(t *testing.T) {
	// Setup: enqueuedAtが同一時刻の場合はSeqの小さい方が先
	scheduler, store := newScheduler(t)

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	state := &domain.QueueState{
		Jobs: map[string]*domain.Job{
			"second": {ID: "second", Seq: 8, Priority: domain.PriorityNormal, Status: domain.StatusPending, EnqueuedAt: at},
			"first":  {ID: "first", Seq: 3, Priority: domain.PriorityNormal, Status: domain.StatusPending, EnqueuedAt: at},
		},
		NextSeq: 9,
	}
	require.NoError(t, store.Save(state))

	// Execute
	next, err := scheduler.GetNextPending()

	// Assert
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "first", next.ID)
}

func TestJobScheduler_GetNextPending_DoesNotMutateStatus(t *testing.T) {
	scheduler, _ := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)

	_, err = scheduler.GetNextPending()
	require.NoError(t, err)

	reloaded, err := scheduler.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, reloaded.Status)
}

func TestJobScheduler_Lifecycle_Timestamps(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)

	// Execute: pending → processing → completed
	require.NoError(t, scheduler.MarkProcessing(job.ID))

	processing, err := scheduler.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, processing.Status)
	require.NotNil(t, processing.StartedAt)

	result := &domain.JobResult{ChunksAdded: 42, ChunksRemoved: 3, ElapsedSeconds: 1.5}
	require.NoError(t, scheduler.MarkCompleted(job.ID, result))

	// Assert
	completed, err := scheduler.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, result, completed.Result)
}

func TestJobScheduler_MarkFailed_StoresError(t *testing.T) {
	scheduler, _ := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)
	require.NoError(t, scheduler.MarkProcessing(job.ID))

	require.NoError(t, scheduler.MarkFailed(job.ID, "clone failed"))

	failed, err := scheduler.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, "clone failed", failed.Error)
	require.NotNil(t, failed.CompletedAt)
}

func TestJobScheduler_Mutate_UnknownID_NotFound(t *testing.T) {
	// Setup
	scheduler, store := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)

	before, err := store.Load()
	require.NoError(t, err)

	// Execute
	errProcessing := scheduler.MarkProcessing("nonexistent")
	errCompleted := scheduler.MarkCompleted("nonexistent", nil)
	errFailed := scheduler.MarkFailed("nonexistent", "boom")

	// Assert: ErrJobNotFound でストアは変更されない
	assert.ErrorIs(t, errProcessing, domain.ErrJobNotFound)
	assert.ErrorIs(t, errCompleted, domain.ErrJobNotFound)
	assert.ErrorIs(t, errFailed, domain.ErrJobNotFound)

	after, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, before.Jobs, after.Jobs)
	assert.Equal(t, domain.StatusPending, after.Jobs[job.ID].Status)
}

func TestJobScheduler_HasExistingJob(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	job, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "git@github.com:acme/api.git", Branch: "main"})
	require.NoError(t, err)

	// pendingの間はtrue
	exists, err := scheduler.HasExistingJob("git@github.com:acme/api.git", "main")
	require.NoError(t, err)
	assert.True(t, exists)

	// 別ブランチはfalse
	exists, err = scheduler.HasExistingJob("git@github.com:acme/api.git", "dev")
	require.NoError(t, err)
	assert.False(t, exists)

	// processingでもtrue
	require.NoError(t, scheduler.MarkProcessing(job.ID))
	exists, err = scheduler.HasExistingJob("git@github.com:acme/api.git", "main")
	require.NoError(t, err)
	assert.True(t, exists)

	// 終端状態になった直後からfalse
	require.NoError(t, scheduler.MarkCompleted(job.ID, nil))
	exists, err = scheduler.HasExistingJob("git@github.com:acme/api.git", "main")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestJobScheduler_CleanupOldJobs(t *testing.T) {
	// Setup: 古い完了/失敗ジョブ2件、新しい完了1件、古いpending/processing各1件
	scheduler, store := newScheduler(t)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-1 * time.Hour)
	longAgo := now.Add(-30 * 24 * time.Hour)

	state := &domain.QueueState{
		Jobs: map[string]*domain.Job{
			"old-completed":  {ID: "old-completed", Status: domain.StatusCompleted, Priority: domain.PriorityNormal, EnqueuedAt: old, CompletedAt: &old},
			"old-failed":     {ID: "old-failed", Status: domain.StatusFailed, Priority: domain.PriorityNormal, EnqueuedAt: old, CompletedAt: &old},
			"new-completed":  {ID: "new-completed", Status: domain.StatusCompleted, Priority: domain.PriorityNormal, EnqueuedAt: recent, CompletedAt: &recent},
			"old-pending":    {ID: "old-pending", Status: domain.StatusPending, Priority: domain.PriorityNormal, EnqueuedAt: longAgo},
			"old-processing": {ID: "old-processing", Status: domain.StatusProcessing, Priority: domain.PriorityNormal, EnqueuedAt: longAgo, StartedAt: &longAgo},
		},
		NextSeq: 5,
	}
	require.NoError(t, store.Save(state))

	// Execute
	removed, err := scheduler.CleanupOldJobs(24 * time.Hour)

	// Assert: 古い終端ジョブのみ削除される
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	after, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, after.Jobs, 3)
	assert.Contains(t, after.Jobs, "new-completed")
	assert.Contains(t, after.Jobs, "old-pending")
	assert.Contains(t, after.Jobs, "old-processing")
}

func TestJobScheduler_CleanupOldJobs_NothingToRemove(t *testing.T) {
	scheduler, _ := newScheduler(t)

	_, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.NoError(t, err)

	removed, err := scheduler.CleanupOldJobs(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJobScheduler_GetJobsByStatus(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	pending, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "a"})
	require.NoError(t, err)
	done, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "b"})
	require.NoError(t, err)
	require.NoError(t, scheduler.MarkProcessing(done.ID))
	require.NoError(t, scheduler.MarkCompleted(done.ID, nil))

	// Execute
	pendingJobs, err := scheduler.GetJobsByStatus(domain.StatusPending)
	require.NoError(t, err)
	completedJobs, err := scheduler.GetJobsByStatus(domain.StatusCompleted)
	require.NoError(t, err)

	// Assert
	require.Len(t, pendingJobs, 1)
	assert.Equal(t, pending.ID, pendingJobs[0].ID)
	require.Len(t, completedJobs, 1)
	assert.Equal(t, done.ID, completedJobs[0].ID)
}

func TestJobScheduler_Stats(t *testing.T) {
	// Setup
	scheduler, _ := newScheduler(t)

	_, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "a"})
	require.NoError(t, err)
	working, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "b"})
	require.NoError(t, err)
	require.NoError(t, scheduler.MarkProcessing(working.ID))
	failed, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "c"})
	require.NoError(t, err)
	require.NoError(t, scheduler.MarkProcessing(failed.ID))
	require.NoError(t, scheduler.MarkFailed(failed.ID, "boom"))

	// Execute
	stats, err := scheduler.Stats()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Processing)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
}

func TestJobScheduler_PersistenceFailuresPropagate(t *testing.T) {
	// Setup
	loadErr := errors.New("disk gone")
	store := &testutil.MockStore{
		LoadFunc: func() (*domain.QueueState, error) {
			return nil, loadErr
		},
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	scheduler := application.NewJobScheduler(store, log)

	// Execute & Assert: 読み込み失敗はラップして伝播する
	_, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})
	require.ErrorIs(t, err, loadErr)

	_, err = scheduler.GetNextPending()
	require.ErrorIs(t, err, loadErr)

	err = scheduler.MarkProcessing("some-id")
	require.ErrorIs(t, err, loadErr)
}

func TestJobScheduler_SaveFailurePropagates(t *testing.T) {
	// Setup
	saveErr := errors.New("disk full")
	store := &testutil.MockStore{
		SaveFunc: func(state *domain.QueueState) error {
			return saveErr
		},
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	scheduler := application.NewJobScheduler(store, log)

	// Execute
	_, err := scheduler.Enqueue(application.EnqueueInput{RepoURL: "u", Branch: "main"})

	// Assert
	require.ErrorIs(t, err, saveErr)
}
