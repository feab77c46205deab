// Package workflow runs submitted jobs on a bounded in-process worker pool.
//
// The Executor owns a FIFO of pending work and a fixed number of workers.
// Submission never blocks; when every worker is busy the work waits in the
// queue and QueueDepth reports how much is waiting. Each unit of work gets a
// Reporter bound to its job id for incremental progress. Failures and panics
// are caught at the worker boundary, logged in full, and recorded on the job
// with a user-safe message.
//
// The queue lives in memory only. Work that is pending or running when the
// process exits is lost and its job record stays in its last state; use
// jobs.Store.ListStale to find such records.
package workflow
