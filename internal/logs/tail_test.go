package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"studyscribe/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyscribe.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\npartial")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d, want end of last complete line", offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v at %d", lines, offset)
	}
}

func TestLastZeroLinesStillReportsOffset(t *testing.T) {
	path := writeLog(t, "one\ntwo\n")
	lines, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 0 || offset != 8 {
		t.Fatalf("got %#v at %d", lines, offset)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) emit(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var got collector
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, got.emit)
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\nhalf"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for len(got.snapshot()) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}

	lines := got.snapshot()
	if len(lines) != 1 || lines[0] != "later" {
		t.Fatalf("unexpected followed lines: %#v", lines)
	}
}

func TestFollowRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "old line one\nold line two\n")
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var got collector
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, got.emit)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(got.snapshot()) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	lines := got.snapshot()
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("unexpected lines after truncation: %#v", lines)
	}
}
