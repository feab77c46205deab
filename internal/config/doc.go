// Package config loads, normalizes, and validates studyscribe configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads a local .env file, and honours environment overrides such
// as JOBS_MAX_WORKERS and GEMINI_API_KEY. The Config type centralizes every
// knob the daemon and CLI need so the job store, executor, transcription
// pipeline, and retrieval layer agree on paths and tuning values.
package config
