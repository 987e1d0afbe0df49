package task

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys defined in this package.
type contextKey int

// taskIDKey is the context key under which the executing task's id is stored.
const taskIDKey contextKey = iota

// withTaskID returns a copy of ctx carrying the task's id. The dispatch loop
// attaches it to every execution context.
func withTaskID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext returns the id of the task whose execution owns ctx.
// Task bodies use it to key side channels (result cache, audit rows) by
// their own task id without the scheduler passing it explicitly.
func TaskIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(taskIDKey).(uuid.UUID)
	return id, ok
}
