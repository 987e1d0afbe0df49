package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/events"
	"github.com/phrazzld/tome-api/internal/store"
	"github.com/phrazzld/tome-api/internal/task"
	"github.com/stretchr/testify/mock"
)

// MockDocumentStore mocks the store.DocumentStore interface
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) FindByUserID(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Document, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DocumentStatus,
) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentStore) WithTx(tx *sql.Tx) store.DocumentStore {
	args := m.Called(tx)
	return args.Get(0).(store.DocumentStore)
}

// MockOperationStore mocks the store.OperationStore interface
type MockOperationStore struct {
	mock.Mock
}

func (m *MockOperationStore) Create(ctx context.Context, op *domain.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operation), args.Error(1)
}

func (m *MockOperationStore) Update(ctx context.Context, op *domain.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOperationStore) WithTx(tx *sql.Tx) store.OperationStore {
	args := m.Called(tx)
	return args.Get(0).(store.OperationStore)
}

// MockEventEmitter mocks the events.EventEmitter interface
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTaskScheduler mocks the TaskScheduler interface used by the delete
// service. It records the resolved submit options of every submission.
type MockTaskScheduler struct {
	mock.Mock
}

func (m *MockTaskScheduler) Submit(
	ctx context.Context,
	work task.Task,
	opts ...task.SubmitOption,
) (uuid.UUID, error) {
	args := m.Called(ctx, work, opts)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTaskScheduler) WaitFor(
	ctx context.Context,
	id uuid.UUID,
	timeout time.Duration,
) (*task.TaskRecord, error) {
	args := m.Called(ctx, id, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.TaskRecord), args.Error(1)
}
