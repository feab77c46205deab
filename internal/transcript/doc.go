// Package transcript persists the ordered segment sequence produced by a
// transcription run.
//
// Two files are written into the session directory: transcript.json holds the
// machine-readable segments and transcript.txt holds one "[start-end] text"
// line per segment for people. Loading only reads the JSON file, so a session
// can be re-indexed without any job bookkeeping.
package transcript
