package application

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/dev-review/internal/module/queue/domain"
)

// JobScheduler はインデックスジョブキューのユースケースを提供します
//
// 変更操作は read-full-document → modify → write-full-document で行うため、
// 同一プロセス内ではミューテックスで直列化されますが、同じストアファイルを
// 共有する複数プロセス間では last-write-wins になります
type JobScheduler struct {
	store domain.Store
	log   *slog.Logger
	mu    sync.Mutex
}

// NewJobScheduler は新しいJobSchedulerを作成します
func NewJobScheduler(store domain.Store, log *slog.Logger) *JobScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &JobScheduler{
		store: store,
		log:   log,
	}
}

// StorePath はキューの永続化ファイルパスを返します
func (s *JobScheduler) StorePath() string {
	return s.store.Path()
}

// EnqueueInput はEnqueueの入力です
type EnqueueInput struct {
	RepoURL      string
	RepoPath     string
	Branch       string
	FileCount    int
	ChangedFiles []string
	Priority     domain.Priority
}

// Enqueue は新しいジョブをpending状態で登録します
// 重複チェックは行いません。呼び出し側は事前にHasExistingJobで確認してください
func (s *JobScheduler) Enqueue(in EnqueueInput) (*domain.Job, error) {
	if in.RepoURL == "" {
		return nil, fmt.Errorf("repo URL is required")
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority: %s", priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}
	if state.Jobs == nil {
		state.Jobs = make(map[string]*domain.Job)
	}

	job := &domain.Job{
		ID:           uuid.New().String(),
		Seq:          state.NextSeq,
		RepoURL:      in.RepoURL,
		RepoPath:     in.RepoPath,
		Branch:       in.Branch,
		ChangedFiles: in.ChangedFiles,
		FileCount:    in.FileCount,
		Priority:     priority,
		Status:       domain.StatusPending,
		EnqueuedAt:   time.Now(),
	}

	state.Jobs[job.ID] = job
	state.NextSeq++
	state.LastUpdated = time.Now()

	if err := s.store.Save(state); err != nil {
		return nil, fmt.Errorf("failed to save job queue: %w", err)
	}

	s.log.Info("Job enqueued",
		"jobID", job.ID,
		"repoURL", job.RepoURL,
		"branch", job.Branch,
		"priority", job.Priority,
	)

	return job, nil
}

// GetNextPending は次に処理すべきpendingジョブを返します
// 優先度（high < normal < low）、enqueuedAt昇順、Seq昇順の順で選択します
// pendingジョブが存在しない場合は (nil, nil) を返します。ステータスは変更しません
func (s *JobScheduler) GetNextPending() (*domain.Job, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}

	var next *domain.Job
	for _, job := range state.Jobs {
		if job.Status != domain.StatusPending {
			continue
		}
		if next == nil || jobBefore(job, next) {
			next = job
		}
	}

	return next, nil
}

// jobBefore は a が b より先に処理されるべきかどうかを返します
func jobBefore(a, b *domain.Job) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.Seq < b.Seq
}

// MarkProcessing はジョブをprocessingに遷移させ、startedAtを記録します
func (s *JobScheduler) MarkProcessing(id string) error {
	return s.mutate(id, func(job *domain.Job) {
		now := time.Now()
		job.Status = domain.StatusProcessing
		job.StartedAt = &now
	})
}

// MarkCompleted はジョブをcompletedに遷移させ、completedAtと結果を記録します
func (s *JobScheduler) MarkCompleted(id string, result *domain.JobResult) error {
	return s.mutate(id, func(job *domain.Job) {
		now := time.Now()
		job.Status = domain.StatusCompleted
		job.CompletedAt = &now
		job.Result = result
	})
}

// MarkFailed はジョブをfailedに遷移させ、completedAtとエラーを記録します
func (s *JobScheduler) MarkFailed(id string, errMsg string) error {
	return s.mutate(id, func(job *domain.Job) {
		now := time.Now()
		job.Status = domain.StatusFailed
		job.CompletedAt = &now
		job.Error = errMsg
	})
}

// mutate はジョブを読み込み、変更し、ドキュメント全体を書き戻します
// 未知のIDの場合はErrJobNotFoundを返し、ストアは変更されません
func (s *JobScheduler) mutate(id string, apply func(job *domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load job queue: %w", err)
	}

	job, ok := state.Jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}

	apply(job)
	state.LastUpdated = time.Now()

	if err := s.store.Save(state); err != nil {
		return fmt.Errorf("failed to save job queue: %w", err)
	}

	return nil
}

// HasExistingJob は指定の(repoUrl, branch)にpending/processingのジョブが
// 存在するかどうかを返します
func (s *JobScheduler) HasExistingJob(repoURL, branch string) (bool, error) {
	state, err := s.store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load job queue: %w", err)
	}

	for _, job := range state.Jobs {
		if job.RepoURL != repoURL || job.Branch != branch {
			continue
		}
		if job.Status == domain.StatusPending || job.Status == domain.StatusProcessing {
			return true, nil
		}
	}

	return false, nil
}

// CleanupOldJobs はcompletedAtがmaxAgeより古い終端状態のジョブを削除し、
// 削除件数を返します。pending/processingのジョブは期間に関係なく削除しません
func (s *JobScheduler) CleanupOldJobs(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load job queue: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range state.Jobs {
		if !job.Status.Terminal() {
			continue
		}
		if job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
			continue
		}
		delete(state.Jobs, id)
		removed++
	}

	if removed == 0 {
		return 0, nil
	}

	state.LastUpdated = time.Now()
	if err := s.store.Save(state); err != nil {
		return 0, fmt.Errorf("failed to save job queue: %w", err)
	}

	s.log.Info("Old jobs cleaned up", "removed", removed, "maxAge", maxAge)

	return removed, nil
}

// GetJob はIDでジョブを取得します
func (s *JobScheduler) GetJob(id string) (*domain.Job, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}

	job, ok := state.Jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}

	return job, nil
}

// GetAllJobs は全ジョブを処理順（優先度、enqueuedAt、Seq）で返します
func (s *JobScheduler) GetAllJobs() ([]*domain.Job, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(state.Jobs))
	for _, job := range state.Jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobBefore(jobs[i], jobs[j])
	})

	return jobs, nil
}

// GetJobsByStatus は指定ステータスのジョブを処理順で返します
func (s *JobScheduler) GetJobsByStatus(status domain.Status) ([]*domain.Job, error) {
	jobs, err := s.GetAllJobs()
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}

	return filtered, nil
}

// QueueStats はステータスごとのジョブ数です
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Stats はステータスごとのジョブ数を返します
func (s *JobScheduler) Stats() (*QueueStats, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}

	stats := &QueueStats{}
	for _, job := range state.Jobs {
		switch job.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusProcessing:
			stats.Processing++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		}
	}

	return stats, nil
}
