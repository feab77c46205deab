package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyscribe/internal/services"
)

var (
	// ErrFinalized is returned when an update targets a job in a terminal state.
	ErrFinalized = errors.New("job already finished")
	// ErrInvalidTransition is returned for lifecycle moves such as running back to queued.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Create allocates a new identifier and inserts a queued record.
func (s *Store) Create(ctx context.Context, spec Spec) (*Job, error) {
	now := s.now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		Progress:   0,
		Message:    "Queued",
		SourcePath: strings.TrimSpace(spec.SourcePath),
		SessionDir: strings.TrimSpace(spec.SessionDir),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, status, progress, message, source_path, session_dir, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), job.Progress, job.Message,
		nullableString(job.SourcePath), nullableString(job.SessionDir),
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "create job", "", err)
	}
	return job, nil
}

// Get fetches a job by id. Unknown ids yield an error matching services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "get job", "", err)
	}
	return job, nil
}

// Update applies a partial update. Only fields set in patch change; updated_at
// is always refreshed. Progress below the stored value is ignored so observed
// progress never decreases. A transition to success with no explicit progress
// records 100.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := applyPatch(*current, patch)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
		    SET status = ?, progress = ?, message = ?, result = ?, error_kind = ?, updated_at = ?
		  WHERE id = ? AND status = ?`,
		string(next.Status), next.Progress, next.Message,
		nullableString(next.Result), nullableString(next.ErrorKind), formatTime(next.UpdatedAt),
		id, string(current.Status),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "update job", "", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// Another process changed the status between read and write.
		return nil, fmt.Errorf("update job %s: concurrent status change: %w", id, ErrInvalidTransition)
	}
	return &next, nil
}

func applyPatch(job Job, patch Patch) (Job, error) {
	if job.Status.IsTerminal() {
		return job, fmt.Errorf("update job %s (%s): %w", job.ID, job.Status, ErrFinalized)
	}
	if patch.Status != nil {
		status := *patch.Status
		if _, err := ParseStatus(string(status)); err != nil {
			return job, services.Wrap(services.ErrValidation, "update job", "", err)
		}
		if !job.Status.canTransitionTo(status) {
			return job, fmt.Errorf("update job %s: %s -> %s: %w", job.ID, job.Status, status, ErrInvalidTransition)
		}
		job.Status = status
	}
	if patch.Progress != nil {
		job.Progress = max(job.Progress, clampPercent(*patch.Progress))
	} else if job.Status == StatusSuccess {
		job.Progress = 100
	}
	if patch.Message != nil {
		job.Message = strings.TrimSpace(*patch.Message)
	}
	if patch.Result != nil {
		if job.Status != StatusSuccess {
			return job, services.Wrap(services.ErrValidation, "update job", "result may only be set on success", nil)
		}
		job.Result = strings.TrimSpace(*patch.Result)
	}
	if patch.ErrorKind != nil {
		job.ErrorKind = strings.TrimSpace(*patch.ErrorKind)
	}
	return job, nil
}

func clampPercent(value int) int {
	return min(max(value, 0), 100)
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY created_at DESC, id"
	return s.queryJobs(ctx, "list jobs", query, args...)
}

// ListStale returns running jobs whose last update is older than cutoff. These
// are typically jobs orphaned by a process exit; they are reported, never
// requeued.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	return s.queryJobs(ctx, "list stale jobs",
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? AND updated_at < ? ORDER BY updated_at",
		string(StatusRunning), formatTime(cutoff),
	)
}

// Stats counts jobs by status; every status is present in the result.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "job stats", "", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, services.Wrap(services.ErrStorageFailure, "job stats", "", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "job stats", "", err)
	}
	return stats, nil
}

func (s *Store) queryJobs(ctx context.Context, operation, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, operation, "", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStorageFailure, operation, "", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, operation, "", err)
	}
	return out, nil
}

func notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "get job", fmt.Sprintf("job %s not found", id), nil)
}
