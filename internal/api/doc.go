// Package api is the transport-neutral service layer shared by the HTTP
// server and the CLI. It owns job submission (session directory allocation,
// the one-active-job-per-session rule, wiring the transcription pipeline
// into the executor) and translates internal models into JSON DTOs.
//
// # Key Types
//
// Job: the polling contract {id, status, progress, message, result}. progress
// is always present, 0 while queued.
//
// JobSummary: Job plus bookkeeping fields for listings.
//
// SearchResponse/Answer: ranked chunks and cited answers across one or more
// session directories.
//
// Status: executor counters, job counts by status, dependency availability.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the persisted artifacts. Timestamps
// use RFC3339 with milliseconds in UTC. Errors keep their services marker so
// transports can map NotFound and validation failures to status codes.
package api
