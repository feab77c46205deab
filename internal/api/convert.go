package api

import (
	"time"

	"studyscribe/internal/deps"
	"studyscribe/internal/jobs"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/workflow"
)

// FromJob converts a job record to the polling view.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
		Result:   job.Result,
	}
}

// FromJobSummary converts a job record to its listing view.
func FromJobSummary(job *jobs.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	return JobSummary{
		Job:        FromJob(job),
		ErrorKind:  job.ErrorKind,
		SourcePath: job.SourcePath,
		SessionDir: job.SessionDir,
		CreatedAt:  FormatTime(job.CreatedAt),
		UpdatedAt:  FormatTime(job.UpdatedAt),
	}
}

// FromJobs converts job records to listing views.
func FromJobs(records []*jobs.Job) []JobSummary {
	out := make([]JobSummary, 0, len(records))
	for _, job := range records {
		if job == nil {
			continue
		}
		out = append(out, FromJobSummary(job))
	}
	return out
}

// MergeJobStats returns counts keyed by status string, including zeroes.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromExecutorStats converts executor counters.
func FromExecutorStats(stats workflow.Stats) ExecutorStatus {
	return ExecutorStatus{
		Running:   stats.Running,
		Workers:   stats.Workers,
		Active:    stats.Active,
		Pending:   stats.Pending,
		Submitted: stats.Submitted,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
	}
}

// FromDependencies converts capability checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromResults converts ranked chunks.
func FromResults(results []retrieval.Result) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, result := range results {
		ids := result.Chunk.SegmentIDs
		if ids == nil {
			ids = []int{}
		}
		out = append(out, SearchResult{
			ChunkID:    result.Chunk.ID,
			Text:       result.Chunk.Text,
			TStart:     result.Chunk.Start,
			TEnd:       result.Chunk.End,
			SegmentIDs: ids,
			SessionDir: result.Chunk.Session,
			Score:      result.Score,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
