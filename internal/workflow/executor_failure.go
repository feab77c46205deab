package workflow

import (
	"context"
	"strings"
	"time"

	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/services"
)

// handleFailure logs the full error chain and records only the user-safe
// message on the job.
func (e *Executor) handleFailure(ctx context.Context, jobID string, jobErr error, elapsed time.Duration) {
	logger := logging.WithContext(ctx, e.logger)

	details := services.Details(jobErr)
	message := strings.TrimSpace(services.UserMessage(jobErr))
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOp, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.String("user_message", message),
		logging.Duration("elapsed", elapsed),
		logging.Error(jobErr),
		logging.String(logging.FieldEventType, "job_failed"),
	}
	logger.Error("job failed", logging.Args(attrs...)...)

	if _, err := e.store.Update(ctx, jobID, jobs.Failed(message, string(details.Kind))); err != nil {
		logger.Error("failed to persist job failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_persist_failed"),
		)
	}
	e.recordOutcome(false)
}
