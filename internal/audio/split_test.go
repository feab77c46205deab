package audio_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"studyscribe/internal/audio"
	"studyscribe/internal/services"
	"studyscribe/internal/testsupport"
)

func TestSplitProducesFixedWindows(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	testsupport.WriteWAV(t, src, 70)

	out := filepath.Join(dir, "work")
	windows, err := audio.Split(src, out, 30)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	wantOffsets := []float64{0, 30, 60}
	wantDurations := []float64{30, 30, 10}
	for i, w := range windows {
		if w.Index != i || w.Offset != wantOffsets[i] || w.Duration != wantDurations[i] {
			t.Fatalf("window %d unexpected: %#v", i, w)
		}
		if filepath.Base(w.Path) != []string{"chunk_000.wav", "chunk_001.wav", "chunk_002.wav"}[i] {
			t.Fatalf("unexpected chunk name %s", w.Path)
		}
		header, err := audio.Inspect(w.Path)
		if err != nil {
			t.Fatalf("Inspect %s: %v", w.Path, err)
		}
		if !header.Format.IsCanonical() {
			t.Fatalf("chunk %d not canonical: %#v", i, header.Format)
		}
		if got := header.Duration().Seconds(); got != wantDurations[i] {
			t.Fatalf("chunk %d duration %.2f, want %.2f", i, got, wantDurations[i])
		}
	}
}

func TestSplitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	testsupport.WriteWAV(t, src, 65)
	out := filepath.Join(dir, "work")

	first, err := audio.Split(src, out, 30)
	if err != nil {
		t.Fatalf("first Split failed: %v", err)
	}
	firstBytes := make([][]byte, len(first))
	for i, w := range first {
		firstBytes[i], _ = os.ReadFile(w.Path)
	}

	second, err := audio.Split(src, out, 30)
	if err != nil {
		t.Fatalf("second Split failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("window count changed: %d vs %d", len(first), len(second))
	}
	for i, w := range second {
		data, _ := os.ReadFile(w.Path)
		if !bytes.Equal(data, firstBytes[i]) {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitRemovesStaleChunks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	testsupport.WriteWAV(t, src, 20)
	out := filepath.Join(dir, "work")

	if _, err := audio.Split(src, out, 5); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	keep := filepath.Join(out, "notes.txt")
	testsupport.WriteFile(t, keep, 4)

	windows, err := audio.Split(src, out, 10)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if _, err := os.Stat(filepath.Join(out, "chunk_003.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale chunk to be removed, got %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestSplitRejectsNonCanonical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "stereo.wav")
	testsupport.WriteWAVFormat(t, src, audio.Format{AudioFormat: 1, Channels: 2, SampleRate: 44100, BitsPerSample: 16}, 1)

	_, err := audio.Split(src, filepath.Join(dir, "work"), 30)
	if !errors.Is(err, services.ErrInputUnreadable) {
		t.Fatalf("expected input unreadable, got %v", err)
	}
}

func TestSplitRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "junk.wav")
	testsupport.WriteFile(t, src, 100)

	_, err := audio.Split(src, filepath.Join(dir, "work"), 30)
	if !errors.Is(err, services.ErrInputUnreadable) {
		t.Fatalf("expected input unreadable, got %v", err)
	}
}

func TestSplitRejectsBadWindow(t *testing.T) {
	_, err := audio.Split("unused.wav", t.TempDir(), 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveChunksMissingDir(t *testing.T) {
	if err := audio.RemoveChunks(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("RemoveChunks on missing dir: %v", err)
	}
}
