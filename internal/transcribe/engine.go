package transcribe

import (
	"context"

	"studyscribe/internal/deps"
	"studyscribe/internal/transcript"
)

// Engine is a speech-to-text backend. Transcribe returns segments with times
// relative to the start of wavPath; workDir is scratch space it may use.
type Engine interface {
	Name() string
	Available() deps.Status
	Transcribe(ctx context.Context, wavPath, workDir string) ([]transcript.Segment, error)
}

// Reporter receives driver progress. workflow.Reporter satisfies it.
type Reporter interface {
	Progress(ctx context.Context, percent int, message string) error
}

// Normalizer converts input audio to the canonical waveform.
type Normalizer interface {
	Available() deps.Status
	Normalize(ctx context.Context, inputPath, workDir string) (string, error)
}

type nopReporter struct{}

func (nopReporter) Progress(context.Context, int, string) error { return nil }
