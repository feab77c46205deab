// Package services defines shared utilities consumed by the job pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - The error taxonomy (input unreadable, decoding tool unavailable,
//     inference backend unavailable, inference failure, not found, storage
//     failure) plus the Wrap helper that attaches a safe, user-facing message
//     to each failure.
//
// Subpackages wrap the external tools the pipeline shells out to (whisperx)
// and the OpenAI-compatible text generation endpoint (llm).
package services
