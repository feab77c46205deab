// Package preflight provides readiness checks for the filesystem, external
// binaries and the answer-synthesis endpoint.
//
// These checks run in two contexts:
//   - The transcription pipeline calls EnsureDiskSpace before normalizing
//     audio and again before persisting artifacts, failing the job with a
//     StorageFailure instead of filling the disk.
//   - The CLI "studyscribe status" command and the daemon's status endpoint
//     use RunAll to display health.
package preflight
