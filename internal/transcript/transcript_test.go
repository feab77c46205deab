package transcript_test

import (
	"errors"
	"os"
	"testing"

	"studyscribe/internal/services"
	"studyscribe/internal/transcript"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	segments := []transcript.Segment{
		{ID: 0, Start: 0, End: 5, Text: "hello world"},
		{ID: 1, Start: 5, End: 10, Text: ""},
		{ID: 2, Start: 10, End: 15.5, Text: " baz qux "},
	}

	path, err := transcript.Save(dir, segments)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != transcript.JSONPath(dir) {
		t.Fatalf("unexpected path %q", path)
	}

	loaded, err := transcript.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 3 || loaded[2].ID != 2 || loaded[2].End != 15.5 {
		t.Fatalf("unexpected segments: %#v", loaded)
	}

	text, err := os.ReadFile(transcript.TextPath(dir))
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	want := "[0.00-5.00] hello world\n[5.00-10.00] \n[10.00-15.50] baz qux\n"
	if string(text) != want {
		t.Fatalf("unexpected text artifact:\n%s", text)
	}
}

func TestLoadMissingIsNotFound(t *testing.T) {
	_, err := transcript.Load(t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadCorruptIsStorageFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(transcript.JSONPath(dir), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := transcript.Load(dir)
	if !errors.Is(err, services.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		segments []transcript.Segment
		wantErr  bool
	}{
		{"empty", nil, false},
		{"ordered", []transcript.Segment{{Start: 0, End: 1}, {Start: 1, End: 2}}, false},
		{"zero length", []transcript.Segment{{Start: 1, End: 1}}, true},
		{"overlap", []transcript.Segment{{Start: 0, End: 2}, {Start: 1, End: 3}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := transcript.Validate(tc.segments)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
