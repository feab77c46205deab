package jobs

import (
	"database/sql"
	"time"
)

const jobColumns = "id, status, progress, message, result, error_kind, source_path, session_dir, created_at, updated_at"

// timeLayout is fixed width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job        Job
		status     string
		result     sql.NullString
		errorKind  sql.NullString
		sourcePath sql.NullString
		sessionDir sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&status,
		&job.Progress,
		&job.Message,
		&result,
		&errorKind,
		&sourcePath,
		&sessionDir,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Result = result.String
	job.ErrorKind = errorKind.String
	job.SourcePath = sourcePath.String
	job.SessionDir = sessionDir.String
	job.CreatedAt = parseTimeString(createdRaw)
	job.UpdatedAt = parseTimeString(updatedRaw)
	return &job, nil
}
