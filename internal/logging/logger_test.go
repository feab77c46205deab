package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"studyscribe/internal/logging"
	"studyscribe/internal/services"
)

func TestConsoleHandlerFoldsJobAndStageIntoHeader(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "0123456789abcdef")
	ctx = services.WithStage(ctx, "transcribe")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "executor")).
		Info("chunk complete", logging.Int("chunk", 2), logging.String("note", "two words"))

	out := buf.String()
	header := strings.SplitN(out, "\n", 2)[0]
	for _, fragment := range []string{"INFO", "[executor]", "Job 01234567 (transcribe)", "chunk complete"} {
		if !strings.Contains(header, fragment) {
			t.Fatalf("expected %q in header %q", fragment, header)
		}
	}
	if !strings.Contains(out, "    - chunk: 2") {
		t.Fatalf("expected chunk bullet, got %q", out)
	}
	if !strings.Contains(out, "    - note: two words") {
		t.Fatalf("expected note bullet, got %q", out)
	}
	if strings.Contains(out, "- job_id") {
		t.Fatalf("job_id should be folded into header, got %q", out)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestJSONHandlerNormalizesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Error("job failed", logging.Error(errors.New("boom")), logging.String(logging.FieldJobID, "abc"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if payload["level"] != "error" || payload["msg"] != "job failed" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %#v", payload)
	}
	if payload["job_id"] != "abc" || payload["error"] != "boom" {
		t.Fatalf("unexpected attrs %#v", payload)
	}
}

func TestJSONHandlerAddsErrorKindAndSeconds(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	failure := services.Wrap(services.ErrInferenceFailure, "whisperx", "engine exited", errors.New("exit status 1"))
	logger.Error("chunk failed", logging.Error(failure), logging.Duration("elapsed", 1500*time.Millisecond))
	logger.Warn("already classified", logging.Error(failure), logging.String(logging.FieldErrorKind, "custom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v (%q)", err, lines[0])
	}
	if first[logging.FieldErrorKind] != string(services.KindInferenceFailure) {
		t.Fatalf("expected error kind, got %#v", first)
	}
	if first[logging.FieldErrorOp] != "whisperx" {
		t.Fatalf("expected error operation, got %#v", first)
	}
	if first["elapsed"] != 1.5 {
		t.Fatalf("expected elapsed in seconds, got %#v", first["elapsed"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v (%q)", err, lines[1])
	}
	if second[logging.FieldErrorKind] != "custom" {
		t.Fatalf("explicit error kind overwritten: %#v", second)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "queue backlog", "queue_depth_warning")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldEventType] != "queue_depth_warning" {
		t.Fatalf("missing event type: %#v", payload)
	}
	if payload[logging.FieldErrorHint] == nil || payload[logging.FieldImpact] == nil {
		t.Fatalf("expected defaults injected: %#v", payload)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
}
