package transcribe_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studyscribe/internal/audio"
	"studyscribe/internal/services"
	"studyscribe/internal/testsupport"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/transcript"
)

type progressCall struct {
	percent int
	message string
}

type recordingReporter struct {
	calls []progressCall
	err   error
}

func (r *recordingReporter) Progress(_ context.Context, percent int, message string) error {
	r.calls = append(r.calls, progressCall{percent, message})
	return r.err
}

func windowsOf(n, seconds int) []audio.Window {
	out := make([]audio.Window, n)
	for i := range out {
		out[i] = audio.Window{Index: i, Path: "chunk.wav", Offset: float64(i * seconds), Duration: float64(seconds)}
	}
	return out
}

func assertOrdered(t *testing.T, segments []transcript.Segment) {
	t.Helper()
	for i, seg := range segments {
		if !(seg.Start < seg.End) {
			t.Fatalf("segment %d has start %.2f >= end %.2f", i, seg.Start, seg.End)
		}
		if seg.ID != i {
			t.Fatalf("segment %d has id %d", i, seg.ID)
		}
		if i > 0 && seg.Start < segments[i-1].End {
			t.Fatalf("segment %d overlaps previous: %.2f < %.2f", i, seg.Start, segments[i-1].End)
		}
	}
}

func TestTranscribeRebasesAndReportsProgress(t *testing.T) {
	engine := &testsupport.FakeEngine{}
	reporter := &recordingReporter{}

	segments, err := transcribe.Transcribe(context.Background(), engine, windowsOf(3, 30), t.TempDir(), reporter)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(segments))
	}
	assertOrdered(t, segments)
	if segments[2].Start != 30 || segments[5].End != 70 {
		t.Fatalf("unexpected rebasing: %+v", segments)
	}

	want := []progressCall{
		{33, "Transcribing chunk 1/3"},
		{67, "Transcribing chunk 2/3"},
		{100, "Transcribing chunk 3/3"},
	}
	if len(reporter.calls) != len(want) {
		t.Fatalf("expected %d progress calls, got %+v", len(want), reporter.calls)
	}
	for i := range want {
		if reporter.calls[i] != want[i] {
			t.Fatalf("progress %d = %+v, want %+v", i, reporter.calls[i], want[i])
		}
	}
}

func TestTranscribeEnforcesTimelineOrder(t *testing.T) {
	engine := &testsupport.FakeEngine{
		Script: func(call int, _ string) ([]transcript.Segment, error) {
			return []transcript.Segment{
				{Start: 8, End: 12, Text: "late"},
				{Start: 0, End: 4, Text: "first"},
				{Start: 3, End: 6, Text: "overlaps"},
				{Start: 6, End: 6, Text: "empty"},
				{Start: 9, End: 45, Text: "runs past window"},
			}, nil
		},
	}
	segments, err := transcribe.Transcribe(context.Background(), engine, windowsOf(2, 10), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertOrdered(t, segments)
	for _, seg := range segments {
		window := int(seg.Start) / 10
		if seg.End > float64(window*10+10) {
			t.Fatalf("segment %+v leaks past its window", seg)
		}
	}
	if segments[0].Text != "first" || segments[1].Start != 4 {
		t.Fatalf("unexpected ordering: %+v", segments[:2])
	}
	assertTextsKept(t, segments, 2, "late", "first", "overlaps", "empty", "runs past window")
}

// assertTextsKept checks that every recognized text appears windows times
// across the output.
func assertTextsKept(t *testing.T, segments []transcript.Segment, windows int, texts ...string) {
	t.Helper()
	var joined []string
	for _, seg := range segments {
		joined = append(joined, seg.Text)
	}
	all := strings.Join(joined, " ")
	for _, text := range texts {
		if got := strings.Count(all, text); got != windows {
			t.Fatalf("text %q appears %d times, want %d in %+v", text, got, windows, segments)
		}
	}
}

func TestTranscribeKeepsTextWithCollapsedTiming(t *testing.T) {
	engine := &testsupport.FakeEngine{
		Script: func(int, string) ([]transcript.Segment, error) {
			return []transcript.Segment{
				{Start: 0, End: 4, Text: "alpha"},
				{Start: 4, End: 4, Text: "instant word"},
				{Start: 10.0, End: 10.4, Text: "boundary word"},
			}, nil
		},
	}
	segments, err := transcribe.Transcribe(context.Background(), engine, windowsOf(1, 10), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertOrdered(t, segments)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %+v", segments)
	}
	want := []string{"alpha", "instant word", "boundary word"}
	for i, seg := range segments {
		if seg.Text != want[i] {
			t.Fatalf("segment %d text = %q, want %q", i, seg.Text, want[i])
		}
		if seg.End > 10 {
			t.Fatalf("segment %+v leaks past the window", seg)
		}
	}
}

func TestTranscribeJoinsTextWhenWindowIsFull(t *testing.T) {
	engine := &testsupport.FakeEngine{
		Script: func(int, string) ([]transcript.Segment, error) {
			return []transcript.Segment{
				{Start: 0, End: 10, Text: "whole window"},
				{Start: 10, End: 10, Text: "trailing"},
				{Start: 12, End: 13, Text: "after end"},
			}, nil
		},
	}
	segments, err := transcribe.Transcribe(context.Background(), engine, windowsOf(1, 10), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertOrdered(t, segments)
	if len(segments) != 1 || segments[0].Text != "whole window trailing after end" {
		t.Fatalf("expected trailing text joined to the last segment, got %+v", segments)
	}
	if segments[0].End != 10 {
		t.Fatalf("segment end = %.2f, want 10", segments[0].End)
	}
}

func TestTranscribeClassifiesEngineFailure(t *testing.T) {
	engine := &testsupport.FakeEngine{
		Script: func(call int, _ string) ([]transcript.Segment, error) {
			if call == 1 {
				return nil, errors.New("model crashed")
			}
			return nil, nil
		},
	}
	reporter := &recordingReporter{}
	segments, err := transcribe.Transcribe(context.Background(), engine, windowsOf(3, 30), t.TempDir(), reporter)
	if !errors.Is(err, services.ErrInferenceFailure) {
		t.Fatalf("expected inference failure, got %v", err)
	}
	if segments != nil {
		t.Fatalf("expected no partial result, got %+v", segments)
	}
	if len(reporter.calls) != 1 {
		t.Fatalf("expected one progress call before failure, got %+v", reporter.calls)
	}
	if len(engine.Calls()) != 2 {
		t.Fatalf("expected the driver to stop after the failing window, got %d calls", len(engine.Calls()))
	}
}

func TestTranscribeKeepsClassifiedErrors(t *testing.T) {
	engine := &testsupport.FakeEngine{
		Script: func(int, string) ([]transcript.Segment, error) {
			return nil, services.Wrap(services.ErrInferenceBackendUnavailable, "whisperx", "", errors.New("uvx missing"))
		},
	}
	_, err := transcribe.Transcribe(context.Background(), engine, windowsOf(1, 30), t.TempDir(), nil)
	if !errors.Is(err, services.ErrInferenceBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestTranscribeStopsOnProgressFailure(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("store down")}
	engine := &testsupport.FakeEngine{}
	if _, err := transcribe.Transcribe(context.Background(), engine, windowsOf(3, 30), t.TempDir(), reporter); err == nil {
		t.Fatal("expected progress failure to abort")
	}
	if len(engine.Calls()) != 1 {
		t.Fatalf("expected a single engine call, got %d", len(engine.Calls()))
	}
}

func TestTranscribeNoWindows(t *testing.T) {
	segments, err := transcribe.Transcribe(context.Background(), &testsupport.FakeEngine{}, nil, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if segments == nil || len(segments) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", segments)
	}
}
