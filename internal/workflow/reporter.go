package workflow

import (
	"context"
	"log/slog"

	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
)

// Reporter records progress for the job a unit of work belongs to.
type Reporter interface {
	Progress(ctx context.Context, percent int, message string) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, percent int, message string) error

// Progress implements Reporter.
func (f ReporterFunc) Progress(ctx context.Context, percent int, message string) error {
	return f(ctx, percent, message)
}

type jobReporter struct {
	store  JobStore
	jobID  string
	logger *slog.Logger
}

func newReporter(store JobStore, jobID string, logger *slog.Logger) Reporter {
	return &jobReporter{store: store, jobID: jobID, logger: logger}
}

func (r *jobReporter) Progress(ctx context.Context, percent int, message string) error {
	if _, err := r.store.Update(ctx, r.jobID, jobs.Progress(percent, message)); err != nil {
		logging.WithContext(ctx, r.logger).Warn("progress update failed",
			logging.Error(err),
			logging.Int("progress", percent),
			logging.String(logging.FieldEventType, "progress_update_failed"),
		)
		return err
	}
	return nil
}
