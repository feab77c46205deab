package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/services"
)

const stageJob = "job"

func (e *Executor) runWorker(ctx context.Context, index int) {
	defer e.wg.Done()
	logger := e.logger.With(logging.Int("worker", index))
	for {
		t, ok := e.next()
		if !ok {
			return
		}
		e.execute(ctx, t)
		t.done()
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
		if ctx.Err() != nil {
			logger.Debug("worker exiting on shutdown")
			return
		}
	}
}

// next blocks until work is available or the executor stops.
func (e *Executor) next() (task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.pending) == 0 && !e.stopped {
		e.cond.Wait()
	}
	if e.stopped {
		return task{}, false
	}
	t := e.pending[0]
	e.pending[0] = task{}
	e.pending = e.pending[1:]
	e.active++
	return t, true
}

func (e *Executor) execute(ctx context.Context, t task) {
	ctx = services.WithJobID(ctx, t.jobID)
	ctx = services.WithStage(ctx, stageJob)
	logger := logging.WithContext(ctx, e.logger)

	if _, err := e.store.Update(ctx, t.jobID, jobs.Running("Starting")); err != nil {
		logger.Error("could not mark job running; skipping",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_start_failed"),
			logging.String(logging.FieldErrorHint, "check the job store"),
		)
		e.recordOutcome(false)
		return
	}

	started := time.Now()
	logger.Info("job started", logging.String(logging.FieldEventType, "job_started"))
	outcome, err := e.invoke(ctx, t)

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		logger.Warn("job abandoned at shutdown; record left running",
			logging.String(logging.FieldEventType, "job_abandoned"),
			logging.String(logging.FieldImpact, "job will be reported as stale"),
		)
		e.recordOutcome(false)
		return
	}
	if err != nil {
		e.handleFailure(ctx, t.jobID, err, time.Since(started))
		return
	}

	message := outcome.Message
	if message == "" {
		message = "Completed"
	}
	if _, updErr := e.store.Update(ctx, t.jobID, jobs.Succeeded(outcome.Result, message)); updErr != nil {
		logger.Error("failed to persist job success",
			logging.Error(updErr),
			logging.String(logging.FieldEventType, "job_persist_failed"),
		)
		e.recordOutcome(false)
		return
	}
	logger.Info("job succeeded",
		logging.String(logging.FieldEventType, "job_succeeded"),
		logging.String("result", outcome.Result),
		logging.Duration("elapsed", time.Since(started)),
	)
	e.recordOutcome(true)
}

// invoke runs the work and turns a panic into an error.
func (e *Executor) invoke(ctx context.Context, t task) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job: %v", r)
			logging.WithContext(ctx, e.logger).Error("job panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "job_panic"),
			)
		}
	}()
	return t.work(ctx, newReporter(e.store, t.jobID, e.logger))
}

func (e *Executor) recordOutcome(ok bool) {
	e.mu.Lock()
	if ok {
		e.counts.succeeded++
	} else {
		e.counts.failed++
	}
	e.mu.Unlock()
}
