// Package transcribe turns an uploaded recording into a persisted transcript.
//
// Transcribe is the driver: it feeds fixed windows to an Engine one at a
// time, rebases each window's segments onto the session timeline, and reports
// "Transcribing chunk N/M" progress after every window. Pipeline wraps the
// driver with the surrounding steps (disk guard, normalization, splitting,
// artifact persistence and chunk building) and is what the executor runs.
//
// Engines report segments relative to the window they were given. The driver
// enforces the timeline invariants itself: segments come out sorted, never
// overlap, and always have start < end, whatever the engine returned. Text whose timing
// collapses under clamping keeps a minimal slot or joins its neighbour.
package transcribe
