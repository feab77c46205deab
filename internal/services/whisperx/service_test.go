package whisperx_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyscribe/internal/deps"
	"studyscribe/internal/services"
	"studyscribe/internal/services/whisperx"
)

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestTranscribeLoadsSegments(t *testing.T) {
	work := t.TempDir()
	svc := whisperx.NewService(whisperx.Config{Model: "small", Language: "EN"})
	svc.WithChecker(deps.Static{Available: true})

	var captured []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != whisperx.UVXCommand {
			t.Errorf("unexpected command %s", name)
		}
		captured = args
		out := argValue(args, "--output_dir")
		payload := `{"segments":[{"text":" hello ","start":0.5,"end":2.0},{"text":"world","start":2.0,"end":3.25}]}`
		return os.WriteFile(filepath.Join(out, "chunk_000.json"), []byte(payload), 0o644)
	})

	segments, err := svc.Transcribe(context.Background(), filepath.Join(work, "chunk_000.wav"), work)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "hello" || segments[1].End != 3.25 {
		t.Fatalf("unexpected segments: %#v", segments)
	}
	if argValue(captured, "--device") != "cpu" {
		t.Fatalf("expected cpu device, got %v", captured)
	}
	if argValue(captured, "--model") != "small" || argValue(captured, "--language") != "en" {
		t.Fatalf("unexpected args: %s", strings.Join(captured, " "))
	}
	if argValue(captured, "--compute_type") != whisperx.DefaultComputeType {
		t.Fatalf("expected default compute type, got %v", captured)
	}
}

func TestLoadSegmentsIgnoresWordTimings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_000.json")
	payload := `{"segments":[{"text":"hi there","start":1,"end":2,` +
		`"words":[{"word":"hi","start":1,"end":1.4},{"word":"there","start":1.5,"end":2}]}],"word_segments":[]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	segments, err := whisperx.LoadSegments(path)
	if err != nil {
		t.Fatalf("LoadSegments failed: %v", err)
	}
	want := whisperx.Segment{Text: "hi there", Start: 1, End: 2}
	if len(segments) != 1 || segments[0] != want {
		t.Fatalf("unexpected segments: %#v", segments)
	}
}

func TestTranscribeBackendUnavailable(t *testing.T) {
	svc := whisperx.NewService(whisperx.Config{})
	svc.WithChecker(deps.Static{Detail: `binary "uvx" not found`})

	_, err := svc.Transcribe(context.Background(), "/tmp/chunk_000.wav", t.TempDir())
	if !errors.Is(err, services.ErrInferenceBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestTranscribeRunFailureIsInferenceFailure(t *testing.T) {
	svc := whisperx.NewService(whisperx.Config{})
	svc.WithChecker(deps.Static{Available: true})
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1: CUDA out of memory")
	})

	_, err := svc.Transcribe(context.Background(), "/tmp/chunk_000.wav", t.TempDir())
	if !errors.Is(err, services.ErrInferenceFailure) {
		t.Fatalf("expected inference failure, got %v", err)
	}
}

func TestTranscribeMissingOutputIsInferenceFailure(t *testing.T) {
	svc := whisperx.NewService(whisperx.Config{})
	svc.WithChecker(deps.Static{Available: true})
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })

	_, err := svc.Transcribe(context.Background(), "/tmp/chunk_000.wav", t.TempDir())
	if !errors.Is(err, services.ErrInferenceFailure) {
		t.Fatalf("expected inference failure, got %v", err)
	}
}
