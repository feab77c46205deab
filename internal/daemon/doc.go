// Package daemon runs the long-lived studyscribe process.
//
// A Daemon holds the single-instance lock, owns the executor lifecycle and
// serves the JSON API over HTTP. Work itself lives in the transcribe,
// retrieval and qa packages; the daemon only starts, stops and routes.
package daemon
