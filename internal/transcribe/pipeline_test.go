package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyscribe/internal/audio"
	"studyscribe/internal/deps"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/services"
	"studyscribe/internal/testsupport"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/transcript"
	"studyscribe/internal/workspace"
)

func missingFFmpeg() *audio.Normalizer {
	return audio.NewNormalizer("ffmpeg",
		audio.WithChecker(deps.Static{Name: "FFmpeg", Detail: `binary "ffmpeg" not found`}))
}

func TestPipelineTranscribesCanonicalWAV(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWindowSeconds(30))
	sessionDir := filepath.Join(t.TempDir(), "session")
	input := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteWAV(t, input, 90)

	engine := &testsupport.FakeEngine{}
	// The canonical input never reaches ffmpeg.
	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), engine, nil)
	reporter := &recordingReporter{}

	result, err := pipeline.Run(context.Background(), transcribe.Request{AudioPath: input, SessionDir: sessionDir}, reporter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Windows != 3 || result.Segments != 6 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.TranscriptPath != transcript.JSONPath(sessionDir) {
		t.Fatalf("unexpected transcript path %q", result.TranscriptPath)
	}

	var percents []int
	for _, call := range reporter.calls {
		percents = append(percents, call.percent)
	}
	want := []int{0, 33, 67, 100}
	if len(percents) != len(want) {
		t.Fatalf("progress = %v, want %v", percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("progress = %v, want %v", percents, want)
		}
	}

	segments, err := transcript.Load(sessionDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(segments) != 6 || segments[4].Start != 60 {
		t.Fatalf("unexpected persisted segments %+v", segments)
	}
	if _, err := os.Stat(transcript.TextPath(sessionDir)); err != nil {
		t.Fatalf("expected transcript text: %v", err)
	}
	if _, err := os.Stat(retrieval.ChunksPath(sessionDir)); err != nil {
		t.Fatalf("expected chunks artifact: %v", err)
	}
	if _, err := os.Stat(workspace.WorkDir(sessionDir)); !os.IsNotExist(err) {
		t.Fatalf("expected work dir removed, got %v", err)
	}
}

func TestPipelineKeepsWorkFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWindowSeconds(30))
	cfg.Transcription.KeepWorkFiles = true
	sessionDir := filepath.Join(t.TempDir(), "session")
	input := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteWAV(t, input, 45)

	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), &testsupport.FakeEngine{}, nil)
	if _, err := pipeline.Run(context.Background(), transcribe.Request{AudioPath: input, SessionDir: sessionDir}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"chunk_000.wav", "chunk_001.wav"} {
		if _, err := os.Stat(filepath.Join(workspace.WorkDir(sessionDir), name)); err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
	}
}

func TestPipelineMissingDecoderFailsFast(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "lecture.m4a")
	testsupport.WriteFile(t, input, 2048)
	engine := &testsupport.FakeEngine{}

	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), engine, nil)
	_, err := pipeline.Run(context.Background(), transcribe.Request{AudioPath: input, SessionDir: t.TempDir()}, nil)
	if !errors.Is(err, services.ErrDecodingToolUnavailable) {
		t.Fatalf("expected decoding tool unavailable, got %v", err)
	}
	if !strings.Contains(services.UserMessage(err), "ffmpeg") {
		t.Fatalf("message should mention ffmpeg: %q", services.UserMessage(err))
	}
	if len(engine.Calls()) != 0 {
		t.Fatal("engine should not run without decoded audio")
	}
}

func TestPipelineBackendUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteWAV(t, input, 5)

	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), &testsupport.FakeEngine{Unavailable: true}, nil)
	_, err := pipeline.Run(context.Background(), transcribe.Request{AudioPath: input, SessionDir: t.TempDir()}, nil)
	if !errors.Is(err, services.ErrInferenceBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestPipelineStorageGuard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.MinFreePercent = 101
	input := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteWAV(t, input, 5)

	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), &testsupport.FakeEngine{}, nil)
	_, err := pipeline.Run(context.Background(), transcribe.Request{AudioPath: input, SessionDir: t.TempDir()}, nil)
	if !errors.Is(err, services.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}

func TestPipelineRequiresPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pipeline := transcribe.NewPipeline(cfg, missingFFmpeg(), &testsupport.FakeEngine{}, nil)
	_, err := pipeline.Run(context.Background(), transcribe.Request{SessionDir: t.TempDir()}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
