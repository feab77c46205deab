package testsupport

import (
	"context"
	"fmt"
	"sync"

	"studyscribe/internal/deps"
	"studyscribe/internal/transcript"
)

// FakeEngine is a scripted transcription engine. By default each call returns
// two segments relative to the window start, "window N part a/b", splitting
// the first ten seconds.
type FakeEngine struct {
	// Script overrides the per-call output. call is zero-based.
	Script func(call int, wavPath string) ([]transcript.Segment, error)
	// Unavailable makes the capability check fail.
	Unavailable bool
	// Gate, when set, blocks every call until a value is received or ctx ends.
	Gate chan struct{}

	mu    sync.Mutex
	calls []string
}

// Name implements the engine interface.
func (f *FakeEngine) Name() string { return "fake" }

// Available implements the engine interface.
func (f *FakeEngine) Available() deps.Status {
	if f.Unavailable {
		return deps.Status{Name: "fake", Command: "fake", Detail: "fake engine disabled"}
	}
	return deps.Status{Name: "fake", Command: "fake", Available: true}
}

// Transcribe implements the engine interface.
func (f *FakeEngine) Transcribe(ctx context.Context, wavPath, _ string) ([]transcript.Segment, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, wavPath)
	f.mu.Unlock()

	if f.Script != nil {
		return f.Script(call, wavPath)
	}
	return []transcript.Segment{
		{Start: 0, End: 5, Text: fmt.Sprintf("window %d part a", call)},
		{Start: 5, End: 10, Text: fmt.Sprintf("window %d part b", call)},
	}, nil
}

// Calls returns the wav paths passed to Transcribe in order.
func (f *FakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
