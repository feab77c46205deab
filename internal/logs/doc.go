// Package logs reads the studyscribe log file for `studyscribe logs`.
//
// Last returns the trailing lines plus the byte offset where a follower should
// resume; Follow polls from that offset and emits complete lines as the daemon
// appends them. Truncation (log rotation or a manual wipe) restarts from the top
// of the file.
package logs
