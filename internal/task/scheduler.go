package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by scheduler operations.
var (
	// ErrSchedulerStopped is returned by operations on a stopped scheduler.
	ErrSchedulerStopped = errors.New("scheduler is stopped")

	// ErrAlreadyStarted is returned by Start when the scheduler is running.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrUnknownTask is returned when an id matches neither registry.
	ErrUnknownTask = errors.New("unknown task")

	// ErrWaitTimeout is returned by WaitFor when the caller's wait timeout
	// elapses before the task reaches a terminal state.
	ErrWaitTimeout = errors.New("timed out waiting for task")

	// ErrNilTask is returned by Submit when no work item is provided.
	ErrNilTask = errors.New("task cannot be nil")

	// ErrInvalidPriority is returned by Submit for priorities outside the
	// five defined levels.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrDuplicateTask is returned by Submit when a caller-supplied id is
	// already tracked.
	ErrDuplicateTask = errors.New("task id already exists")
)

// Fixed dispatch intervals. The queue poll bounds how quickly the loop
// observes shutdown; the wait poll bounds how quickly waiters see terminal
// transitions; the backoff keeps a faulting loop from spinning.
const (
	queuePollTimeout = 1 * time.Second
	waitPollInterval = 100 * time.Millisecond
	dispatchBackoff  = 1 * time.Second
)

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// MaxConcurrentTasks bounds how many task bodies run at once.
	MaxConcurrentTasks int

	// MaxQueueSize bounds the pending queue; Submit fails with ErrQueueFull
	// once it is reached.
	MaxQueueSize int

	// DefaultTimeout applies to tasks submitted without WithTimeout.
	DefaultTimeout time.Duration

	// CleanupInterval is how often the sweeper scans completed records.
	CleanupInterval time.Duration

	// Retention is how long terminal records stay queryable before the
	// sweeper evicts them.
	Retention time.Duration

	// DefaultMaxRetries applies to tasks submitted without WithMaxRetries.
	DefaultMaxRetries int
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentTasks: 4,
		MaxQueueSize:       1000,
		DefaultTimeout:     5 * time.Minute,
		CleanupInterval:    time.Minute,
		Retention:          time.Hour,
		DefaultMaxRetries:  3,
	}
}

// Statistics is a point-in-time snapshot of scheduler counters.
type Statistics struct {
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Cancelled uint64 `json:"cancelled"`
	TimedOut  uint64 `json:"timed_out"`
	Running   int    `json:"running"`
	Queued    int    `json:"queued"`
}

// Scheduler executes submitted tasks with bounded concurrency, dispatching
// in strict (priority, enqueue time) order at the moment of dequeue. It
// owns all task state: callers interact through Submit, Cancel, GetStatus,
// WaitFor, and GetStatistics, and receive snapshot copies only.
//
// A Scheduler must be constructed with NewScheduler and explicitly started;
// there is no process-wide instance.
type Scheduler struct {
	config SchedulerConfig
	logger *slog.Logger

	queue *PriorityQueue

	// permits is the concurrency budget; one token held per in-flight
	// execution.
	permits chan struct{}

	// mu guards the registries, handle table, counters, and lifecycle
	// flags. All status/retry mutation happens under it.
	mu        sync.Mutex
	active    map[uuid.UUID]*TaskRecord
	completed map[uuid.UUID]*TaskRecord

	// bodies holds the work item for each non-terminal record, keyed by
	// task id. Entries are removed exactly at the terminal transition.
	bodies map[uuid.UUID]Task

	// cancels is the handle table for running executions, keyed by task id.
	cancels map[uuid.UUID]context.CancelFunc

	counters struct {
		submitted uint64
		completed uint64
		failed    uint64
		cancelled uint64
		timedOut  uint64
	}

	started bool
	stopped bool
	stopCh  chan struct{}

	// wg tracks the dispatch and sweeper loops; execWG tracks in-flight
	// executions so Stop can wait for acknowledgement.
	wg     sync.WaitGroup
	execWG sync.WaitGroup
}

// NewScheduler creates a scheduler from config. Zero config fields fall
// back to DefaultSchedulerConfig values; a nil logger falls back to the
// process default.
func NewScheduler(config SchedulerConfig, logger *slog.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.MaxConcurrentTasks <= 0 {
		config.MaxConcurrentTasks = defaults.MaxConcurrentTasks
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = defaults.MaxQueueSize
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaults.DefaultTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if config.DefaultMaxRetries < 0 {
		config.DefaultMaxRetries = defaults.DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		config:    config,
		logger:    logger.With("component", "task_scheduler"),
		queue:     NewPriorityQueue(config.MaxQueueSize),
		permits:   make(chan struct{}, config.MaxConcurrentTasks),
		active:    make(map[uuid.UUID]*TaskRecord),
		completed: make(map[uuid.UUID]*TaskRecord),
		bodies:    make(map[uuid.UUID]Task),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the dispatch loop and the cleanup sweeper.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.wg.Add(2)
	go s.dispatchLoop()
	go s.sweeperLoop()

	s.logger.Info("scheduler started",
		"max_concurrent_tasks", s.config.MaxConcurrentTasks,
		"max_queue_size", s.config.MaxQueueSize,
		"default_timeout", s.config.DefaultTimeout,
		"retention", s.config.Retention)
	return nil
}

// Stop shuts the scheduler down: stop intake, request cooperative abort of
// every running task, wait for in-flight executions to acknowledge until
// ctx is done, then stop the loops unconditionally. A non-nil error means
// the grace period elapsed with work still in flight.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	s.stopped = true
	for id, cancel := range s.cancels {
		if record, ok := s.active[id]; ok {
			record.CancelRequested = true
		}
		cancel()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.queue.Close()

	done := make(chan struct{})
	go func() {
		s.execWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("shutdown grace period elapsed: %w", ctx.Err())
		s.logger.Warn("stopping with executions unacknowledged")
	}

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

// Submit registers work for asynchronous execution and returns its task id.
// The record is queryable immediately. Fails with an error wrapping
// ErrQueueFull when the pending queue is at capacity.
func (s *Scheduler) Submit(ctx context.Context, work Task, opts ...SubmitOption) (uuid.UUID, error) {
	if work == nil {
		return uuid.Nil, ErrNilTask
	}

	options := submitOptions{
		id:         uuid.New(),
		priority:   PriorityMedium,
		timeout:    s.config.DefaultTimeout,
		maxRetries: s.config.DefaultMaxRetries,
		taskType:   TaskTypeUnknown,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if !options.priority.IsValid() {
		return uuid.Nil, fmt.Errorf("%w: %d", ErrInvalidPriority, options.priority)
	}
	if options.maxRetries < 0 {
		options.maxRetries = 0
	}

	now := time.Now().UTC()
	record := &TaskRecord{
		ID:          options.id,
		TaskType:    options.taskType,
		Priority:    options.priority,
		Status:      StatusPending,
		SubmittedAt: now,
		Timeout:     options.timeout,
		MaxRetries:  options.maxRetries,
		Metadata:    options.metadata,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return uuid.Nil, ErrSchedulerStopped
	}
	if _, exists := s.active[record.ID]; exists {
		s.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrDuplicateTask, record.ID)
	}
	if _, exists := s.completed[record.ID]; exists {
		s.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrDuplicateTask, record.ID)
	}
	// Register before pushing so a dispatch racing the push always finds
	// the record.
	s.active[record.ID] = record
	s.bodies[record.ID] = work
	s.mu.Unlock()

	if err := s.queue.Push(record.ID, record.Priority, now); err != nil {
		s.mu.Lock()
		delete(s.active, record.ID)
		delete(s.bodies, record.ID)
		s.mu.Unlock()
		return uuid.Nil, err
	}

	s.mu.Lock()
	s.counters.submitted++
	s.mu.Unlock()

	s.logger.Debug("task submitted",
		"task_id", record.ID,
		"task_type", record.TaskType,
		"priority", record.Priority.String())
	return record.ID, nil
}

// Cancel requests cancellation of the task with the given id. It returns
// false when the id is unknown or the task is already terminal.
//
// A Pending task is marked Cancelled immediately; the dispatch loop skips
// its queued handle, so its body is guaranteed never to run. A Running
// task gets a cooperative abort: its context is cancelled and the outcome
// depends on whether the body acknowledges before finishing.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()

	record, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	switch record.Status {
	case StatusPending:
		now := time.Now().UTC()
		record.Status = StatusCancelled
		record.CompletedAt = &now
		record.ErrorMessage = "task cancelled before execution"
		s.finalizeLocked(record)
		s.mu.Unlock()
		s.logger.Info("cancelled queued task", "task_id", id)
		return true

	case StatusRunning:
		record.CancelRequested = true
		cancel := s.cancels[id]
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.logger.Info("requested cancellation of running task", "task_id", id)
		return true

	default:
		s.mu.Unlock()
		return false
	}
}

// GetStatus returns a snapshot of the task's record, or nil when the id is
// unknown or its record has been evicted. Repeated calls on a terminal
// task return identical snapshots until eviction.
func (s *Scheduler) GetStatus(id uuid.UUID) *TaskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.active[id]; ok {
		return record.snapshot()
	}
	if record, ok := s.completed[id]; ok {
		return record.snapshot()
	}
	return nil
}

// WaitFor blocks until the task reaches a terminal state and returns its
// record, polling at a fixed short interval. A timeout of zero waits
// indefinitely. It fails with ErrUnknownTask for untracked ids and with an
// error wrapping ErrWaitTimeout when the wait timeout elapses first.
//
// When ctx is cancelled while the task is still non-terminal, WaitFor
// returns the best-known snapshot with its status forced to Cancelled
// rather than losing the caller's outcome; the scheduler's own record is
// not affected.
func (s *Scheduler) WaitFor(ctx context.Context, id uuid.UUID, timeout time.Duration) (*TaskRecord, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		record := s.GetStatus(id)
		if record == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
		}
		if record.Status.IsTerminal() {
			return record, nil
		}

		select {
		case <-ctx.Done():
			// The wait was cancelled, not the task.
			record.Status = StatusCancelled
			return record, nil
		case <-deadline:
			return nil, fmt.Errorf("%w: task %s not terminal after %s", ErrWaitTimeout, id, timeout)
		case <-ticker.C:
		}
	}
}

// GetStatistics returns a snapshot of the scheduler counters. Queued
// counts queue entries, which can briefly include handles of tasks
// cancelled while pending.
func (s *Scheduler) GetStatistics() Statistics {
	s.mu.Lock()
	running := 0
	for _, record := range s.active {
		if record.Status == StatusRunning {
			running++
		}
	}
	stats := Statistics{
		Submitted: s.counters.submitted,
		Completed: s.counters.completed,
		Failed:    s.counters.failed,
		Cancelled: s.counters.cancelled,
		TimedOut:  s.counters.timedOut,
		Running:   running,
	}
	s.mu.Unlock()

	stats.Queued = s.queue.Len()
	return stats
}

// finalizeLocked moves a record with a terminal status from the active to
// the completed registry, drops its body and cancel handle, and bumps the
// outcome counter. Callers must hold s.mu.
func (s *Scheduler) finalizeLocked(record *TaskRecord) {
	// The abort-requested flag only describes in-flight executions.
	record.CancelRequested = false
	delete(s.active, record.ID)
	delete(s.bodies, record.ID)
	delete(s.cancels, record.ID)
	s.completed[record.ID] = record

	switch record.Status {
	case StatusCompleted:
		s.counters.completed++
	case StatusFailed:
		s.counters.failed++
	case StatusCancelled:
		s.counters.cancelled++
	case StatusTimedOut:
		s.counters.timedOut++
	}
}

// dispatchLoop drives execution until Stop. Each iteration is contained so
// a transient fault backs off instead of killing the loop.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	s.logger.Debug("dispatch loop starting")
	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("dispatch loop stopping")
			return
		default:
		}

		s.dispatchOnce()
	}
}

// dispatchOnce performs one acquire-permit/poll/execute round.
func (s *Scheduler) dispatchOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch iteration panicked",
				"panic", r,
				"stack", string(debug.Stack()))
			select {
			case <-time.After(dispatchBackoff):
			case <-s.stopCh:
			}
		}
	}()

	// Acquire the permit first so a ready task starts immediately after
	// dequeue.
	select {
	case s.permits <- struct{}{}:
	case <-s.stopCh:
		return
	}

	id, ok := s.queue.Pop(queuePollTimeout)
	if !ok {
		// Queue idle: release the permit rather than holding it.
		<-s.permits
		return
	}

	s.mu.Lock()
	if s.stopped {
		// Stop already cancelled everything it knew about; starting a new
		// execution now would escape that pass.
		s.mu.Unlock()
		<-s.permits
		return
	}
	record, isActive := s.active[id]
	if !isActive || record.Status != StatusPending {
		// Cancelled while queued, or finalized by another path. Skip
		// without executing.
		s.mu.Unlock()
		<-s.permits
		return
	}

	now := time.Now().UTC()
	record.Status = StatusRunning
	record.StartedAt = &now

	timeout := record.Timeout
	if timeout <= 0 {
		timeout = s.config.DefaultTimeout
	}

	// Tasks outlive the submitting request, so the execution context is
	// rooted at Background, bounded by the task's own timeout.
	execCtx, cancel := context.WithTimeout(withTaskID(context.Background(), id), timeout)
	s.cancels[id] = cancel
	body := s.bodies[id]
	s.mu.Unlock()

	s.execWG.Add(1)
	go s.executeTask(execCtx, cancel, id, body, timeout)
}

// executeTask runs one attempt of a task body and classifies the outcome.
// The permit is released when the attempt concludes, whatever the result.
func (s *Scheduler) executeTask(
	ctx context.Context,
	cancel context.CancelFunc,
	id uuid.UUID,
	body Task,
	timeout time.Duration,
) {
	defer s.execWG.Done()
	defer func() { <-s.permits }()
	defer cancel()

	logger := s.logger.With("task_id", id)
	logger.Debug("executing task")

	type outcome struct {
		value any
		err   error
	}
	// Buffered so an abandoned body can still deliver its result and exit.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v\n%s", r, debug.Stack())}
			}
		}()
		value, err := body.Execute(ctx)
		done <- outcome{value: value, err: err}
	}()

	var res outcome
	finished := false
	select {
	case res = <-done:
		finished = true
	case <-ctx.Done():
	}

	now := time.Now().UTC()

	s.mu.Lock()
	record, ok := s.active[id]
	if !ok {
		// Finalized elsewhere while we raced; nothing left to record.
		s.mu.Unlock()
		return
	}

	switch {
	case finished && res.err == nil:
		record.Status = StatusCompleted
		record.Result = res.value
		record.CompletedAt = &now
		s.finalizeLocked(record)
		s.mu.Unlock()
		logger.Info("task completed")

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		record.Status = StatusTimedOut
		record.ErrorMessage = fmt.Sprintf("task timed out after %s", timeout)
		record.CompletedAt = &now
		s.finalizeLocked(record)
		s.mu.Unlock()
		logger.Warn("task timed out", "timeout", timeout)

	case errors.Is(ctx.Err(), context.Canceled):
		record.Status = StatusCancelled
		record.ErrorMessage = "task cancelled during execution"
		record.CompletedAt = &now
		s.finalizeLocked(record)
		s.mu.Unlock()
		logger.Info("task cancelled during execution")

	default:
		// The body returned an error on its own.
		s.handleFailureLocked(record, res.err, now, logger)
	}
}

// handleFailureLocked applies the retry policy to a failed attempt. The
// caller must hold s.mu; it is released before returning.
func (s *Scheduler) handleFailureLocked(record *TaskRecord, execErr error, now time.Time, logger *slog.Logger) {
	record.ErrorMessage = execErr.Error()
	maxRetries := record.MaxRetries

	if record.RetryCount >= maxRetries {
		retryCount := record.RetryCount
		record.Status = StatusFailed
		record.CompletedAt = &now
		s.finalizeLocked(record)
		s.mu.Unlock()
		logger.Error("task failed",
			"error", execErr,
			"retry_count", retryCount,
			"max_retries", maxRetries)
		return
	}

	record.RetryCount++
	retryCount := record.RetryCount
	record.Status = StatusPending
	record.CancelRequested = false
	delete(s.cancels, record.ID)

	// Re-queue immediately, keyed at the requeue time so the retry takes
	// its place behind work already pending at the same priority.
	if err := s.queue.Push(record.ID, record.Priority, now); err != nil {
		// A full queue must not swallow the retry: the task fails loudly.
		record.Status = StatusFailed
		record.CompletedAt = &now
		record.ErrorMessage = fmt.Sprintf("retry %d/%d could not be queued: %v",
			retryCount, maxRetries, err)
		s.finalizeLocked(record)
		s.mu.Unlock()
		logger.Error("task failed, retry rejected by queue",
			"error", err,
			"retry_count", retryCount)
		return
	}
	s.mu.Unlock()

	logger.Warn("task attempt failed, requeued",
		"error", execErr,
		"retry_count", retryCount,
		"max_retries", maxRetries)
}

// sweeperLoop periodically evicts expired terminal records. It is the only
// deleter of terminal records and never touches the active registry.
func (s *Scheduler) sweeperLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepCompleted(time.Now().UTC())
		}
	}
}

// sweepCompleted evicts completed records older than the retention window
// and returns how many were removed.
func (s *Scheduler) sweepCompleted(now time.Time) int {
	cutoff := now.Add(-s.config.Retention)

	s.mu.Lock()
	evicted := 0
	for id, record := range s.completed {
		if record.CompletedAt != nil && record.CompletedAt.Before(cutoff) {
			delete(s.completed, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("evicted expired task records", "count", evicted)
	}
	return evicted
}
