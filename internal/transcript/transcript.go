package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"studyscribe/internal/fileutil"
	"studyscribe/internal/services"
)

const (
	// JSONFile is the machine-readable transcript artifact.
	JSONFile = "transcript.json"
	// TextFile is the human-readable transcript artifact.
	TextFile = "transcript.txt"
)

// Segment is a timestamped span of recognized speech. Start and End are
// seconds from the beginning of the session audio.
type Segment struct {
	ID    int     `json:"segment_id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// JSONPath returns the transcript.json location inside sessionDir.
func JSONPath(sessionDir string) string {
	return filepath.Join(sessionDir, JSONFile)
}

// TextPath returns the transcript.txt location inside sessionDir.
func TextPath(sessionDir string) string {
	return filepath.Join(sessionDir, TextFile)
}

// Validate checks ordering: every segment has start < end, and segments are
// sorted by start without overlapping their predecessor.
func Validate(segments []Segment) error {
	for i, seg := range segments {
		if !(seg.Start < seg.End) {
			return fmt.Errorf("segment %d: start %.3f is not before end %.3f", seg.ID, seg.Start, seg.End)
		}
		if i == 0 {
			continue
		}
		prev := segments[i-1]
		if seg.Start < prev.End {
			return fmt.Errorf("segment %d starts at %.3f before segment %d ends at %.3f", seg.ID, seg.Start, prev.ID, prev.End)
		}
	}
	return nil
}

// Save writes both transcript artifacts atomically. It returns the JSON path.
func Save(sessionDir string, segments []Segment) (string, error) {
	if segments == nil {
		segments = []Segment{}
	}
	jsonPath := JSONPath(sessionDir)
	if err := fileutil.WriteJSONAtomic(jsonPath, segments); err != nil {
		return "", services.Wrap(services.ErrStorageFailure, "save transcript", "", err)
	}
	if err := fileutil.WriteFileAtomic(TextPath(sessionDir), []byte(FormatText(segments)), 0o644); err != nil {
		return "", services.Wrap(services.ErrStorageFailure, "save transcript", "", err)
	}
	return jsonPath, nil
}

// Load reads transcript.json. A missing file is reported as services.ErrNotFound.
func Load(sessionDir string) ([]Segment, error) {
	data, err := os.ReadFile(JSONPath(sessionDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "load transcript",
				fmt.Sprintf("no transcript found in %s", sessionDir), err)
		}
		return nil, services.Wrap(services.ErrStorageFailure, "load transcript", "", err)
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "load transcript", "transcript.json is corrupt", err)
	}
	return segments, nil
}

// FormatText renders segments as "[start-end] text" lines with two decimal
// places.
func FormatText(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%.2f-%.2f] %s\n", seg.Start, seg.End, strings.TrimSpace(seg.Text))
	}
	return b.String()
}
