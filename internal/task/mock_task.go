package task

import (
	"context"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	// ExecuteFn is invoked by Execute when set.
	ExecuteFn func(ctx context.Context) (any, error)

	// ExecuteResult and ExecuteErr are returned when ExecuteFn is nil.
	ExecuteResult any
	ExecuteErr    error
}

// NewMockTask creates a MockTask that returns the given result and error
func NewMockTask(result any, err error) *MockTask {
	return &MockTask{
		ExecuteResult: result,
		ExecuteErr:    err,
	}
}

// Execute runs the task logic
func (t *MockTask) Execute(ctx context.Context) (any, error) {
	if t.ExecuteFn != nil {
		return t.ExecuteFn(ctx)
	}
	return t.ExecuteResult, t.ExecuteErr
}
