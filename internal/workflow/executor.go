package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("executor stopped")

// JobStore is the job persistence the executor mutates.
type JobStore interface {
	Update(ctx context.Context, id string, patch jobs.Patch) (*jobs.Job, error)
}

// Outcome is the successful result of a unit of work.
type Outcome struct {
	// Result is the output reference recorded on the job.
	Result string
	// Message replaces the job message; empty uses "Completed".
	Message string
}

// Work is a unit of work. Returning a non-nil error fails the job; the error
// should carry a services marker so a helpful message reaches the user.
type Work func(ctx context.Context, report Reporter) (Outcome, error)

type task struct {
	jobID  string
	work   Work
	finish func()
}

// SubmitOption configures a single submission.
type SubmitOption func(*task)

// OnFinish registers fn to run once the executor is done with the job: after
// its terminal record is written, after the start or final write fails, when
// it is abandoned at shutdown, or when Stop drops it from the queue.
func OnFinish(fn func()) SubmitOption {
	return func(t *task) {
		t.finish = fn
	}
}

func (t task) done() {
	if t.finish != nil {
		t.finish()
	}
}

// Executor is a bounded worker pool with an unbounded FIFO queue.
type Executor struct {
	store     JobStore
	logger    *slog.Logger
	workers   int
	warnDepth int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []task
	active  int
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	counts  counters
}

type counters struct {
	submitted int
	succeeded int
	failed    int
}

// ExecutorOption configures optional Executor behavior.
type ExecutorOption func(*Executor)

// WithQueueWarnDepth logs a warning whenever a submission leaves at least
// depth units waiting. Zero disables the warning.
func WithQueueWarnDepth(depth int) ExecutorOption {
	return func(e *Executor) {
		e.warnDepth = max(depth, 0)
	}
}

// NewExecutor constructs an executor with workers goroutines. It does not run
// anything until Start.
func NewExecutor(store JobStore, logger *slog.Logger, workers int, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		store:   store,
		logger:  logging.NewComponentLogger(logger, "executor"),
		workers: max(workers, 1),
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the workers. Work submitted before Start begins running now.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.started {
		e.mu.Unlock()
		return errors.New("executor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true
	e.wg.Add(e.workers)
	e.mu.Unlock()

	for i := 0; i < e.workers; i++ {
		go e.runWorker(runCtx, i)
	}
	e.logger.Info("executor started", logging.Int("workers", e.workers))
	return nil
}

// Stop cancels running work and waits for workers to exit. Pending work is
// dropped and its job records remain queued.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	dropped := e.pending
	e.pending = nil
	e.cond.Broadcast()
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	for _, t := range dropped {
		t.done()
	}
	if len(dropped) > 0 {
		logging.WarnWithContext(e.logger, "executor stopped with pending work", "executor_dropped_work",
			logging.Int(logging.FieldQueueDepth, len(dropped)),
			logging.String(logging.FieldImpact, "pending jobs remain queued and will not run"),
			logging.String(logging.FieldErrorHint, "resubmit the affected audio after restart"),
		)
	}
	e.logger.Info("executor stopped")
}

// Submit enqueues work for jobID and returns immediately. The job record is
// expected to exist in the queued state.
func (e *Executor) Submit(jobID string, work Work, opts ...SubmitOption) error {
	if work == nil {
		return errors.New("submit: nil work")
	}
	t := task{jobID: jobID, work: work}
	for _, opt := range opts {
		opt(&t)
	}
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.pending = append(e.pending, t)
	e.counts.submitted++
	depth := len(e.pending)
	e.cond.Signal()
	e.mu.Unlock()

	e.logger.Debug("job submitted", logging.String(logging.FieldJobID, jobID), logging.Int(logging.FieldQueueDepth, depth))
	if e.warnDepth > 0 && depth >= e.warnDepth {
		logging.WarnWithContext(e.logger, "job queue depth above threshold", "queue_depth_warning",
			logging.Int(logging.FieldQueueDepth, depth),
			logging.Int("threshold", e.warnDepth),
			logging.String(logging.FieldImpact, "new transcriptions will start later than usual"),
			logging.String(logging.FieldErrorHint, "raise jobs.max_workers or wait for the queue to drain"),
		)
	}
	return nil
}

// QueueDepth is the number of submitted units not yet picked up by a worker.
func (e *Executor) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
