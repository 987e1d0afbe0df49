package task

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the PriorityQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// queueItem is one pending handle. enqueuedAt is the push time, so a
// retried task re-enters FIFO order at its requeue time rather than its
// original submission time.
type queueItem struct {
	taskID     uuid.UUID
	priority   Priority
	enqueuedAt time.Time
	seq        uint64
}

// itemHeap orders handles by (priority, enqueuedAt, seq). The sequence
// number keeps FIFO order stable when two pushes share a timestamp.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	if !h[i].enqueuedAt.Equal(h[j].enqueuedAt) {
		return h[i].enqueuedAt.Before(h[j].enqueuedAt)
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*queueItem)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// PriorityQueue is a bounded queue of pending task handles ordered by
// (priority, enqueue time). Push never blocks; Pop blocks up to a poll
// timeout so the consumer can interleave shutdown checks.
type PriorityQueue struct {
	mu      sync.Mutex
	items   itemHeap
	maxSize int
	seq     uint64
	closed  bool

	// notify wakes a blocked Pop after a Push or Close. Buffered so a
	// Push with no waiter never blocks.
	notify chan struct{}
}

// NewPriorityQueue creates a priority queue bounded at maxSize entries.
func NewPriorityQueue(maxSize int) *PriorityQueue {
	return &PriorityQueue{
		items:   make(itemHeap, 0),
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Push adds a task handle to the queue.
// Returns an error wrapping ErrQueueFull when the queue is at capacity and
// ErrQueueClosed after Close; a full queue is reported, never silently
// dropped.
func (q *PriorityQueue) Push(taskID uuid.UUID, priority Priority, enqueuedAt time.Time) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if len(q.items) >= q.maxSize {
		q.mu.Unlock()
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, q.maxSize)
	}
	q.seq++
	heap.Push(&q.items, &queueItem{
		taskID:     taskID,
		priority:   priority,
		enqueuedAt: enqueuedAt,
		seq:        q.seq,
	})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the highest-priority handle, waiting up to
// timeout for one to arrive. The second return is false when the wait
// elapsed or the queue was closed while empty. Items still queued at close
// time continue to drain.
func (q *PriorityQueue) Pop(timeout time.Duration) (uuid.UUID, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := heap.Pop(&q.items).(*queueItem)
			q.mu.Unlock()
			return it.taskID, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return uuid.Nil, false
		}

		select {
		case <-q.notify:
			// Woken by a push or close; re-check under the lock.
		case <-deadline.C:
			return uuid.Nil, false
		}
	}
}

// Len returns the number of handles currently queued.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close prevents further pushes and wakes any blocked Pop. Idempotent.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
