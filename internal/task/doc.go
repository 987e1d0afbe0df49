// Package task implements the priority-aware, bounded-concurrency scheduler
// that all asynchronous work in the application flows through. Work items
// are submitted as opaque Task values with a priority, timeout, and retry
// budget; a single dispatch loop executes them under a fixed concurrency
// limit, honoring strict (priority, enqueue time) ordering at dequeue.
// Completed records remain queryable until a background sweeper evicts them
// after a retention window.
package task
