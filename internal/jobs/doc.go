// Package jobs persists job lifecycle records in SQLite.
//
// A job moves from queued to running and ends in exactly one of success or
// error. The Store enforces that lifecycle: progress never moves backwards,
// terminal records reject further updates, and updates to the same job are
// serialized while updates to different jobs proceed independently.
//
// Records are durable bookkeeping for polling clients. A job that was running
// when the process died stays running in the table; ListStale reports such
// records and operators decide what to do with them.
package jobs
