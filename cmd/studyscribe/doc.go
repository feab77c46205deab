// Command studyscribe transcribes lecture recordings and answers questions
// about them.
//
// `studyscribe serve` runs the daemon that owns the job queue and HTTP API.
// `transcribe` submits audio to it; `search`, `ask`, `job` and `chunks` work
// directly against the data directory so they keep working while the daemon
// is down.
package main
