package testing

import (
	"context"

	"github.com/jinford/dev-review/internal/module/queue/domain"
)

// MockIndexer はテスト用のモックIndexerです
type MockIndexer struct {
	ProcessJobFunc func(ctx context.Context, job *domain.Job) (*domain.JobResult, error)
}

func (m *MockIndexer) ProcessJob(ctx context.Context, job *domain.Job) (*domain.JobResult, error) {
	if m.ProcessJobFunc != nil {
		return m.ProcessJobFunc(ctx, job)
	}
	return &domain.JobResult{}, nil
}

// MockStore はテスト用のモックStoreです
type MockStore struct {
	LoadFunc func() (*domain.QueueState, error)
	SaveFunc func(state *domain.QueueState) error
	PathFunc func() string
}

func (m *MockStore) Load() (*domain.QueueState, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return &domain.QueueState{}, nil
}

func (m *MockStore) Save(state *domain.QueueState) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(state)
	}
	return nil
}

func (m *MockStore) Path() string {
	if m.PathFunc != nil {
		return m.PathFunc()
	}
	return "/tmp/jobs.json"
}
