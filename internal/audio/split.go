package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"studyscribe/internal/fileutil"
	"studyscribe/internal/services"
)

// ChunkPattern names split windows inside the work directory.
const ChunkPattern = "chunk_%03d.wav"

var chunkNamePattern = regexp.MustCompile(`^chunk_\d{3,}\.wav$`)

// Window is one fixed-duration slice of the canonical waveform.
type Window struct {
	Index int
	Path  string
	// Offset is the window start in seconds on the session timeline.
	Offset float64
	// Duration is the window length in seconds; only the last window may be shorter.
	Duration float64
}

// Split slices the canonical waveform at wavPath into non-overlapping windows
// of windowSeconds written to outDir. Existing chunk files in outDir are
// replaced, so re-running on the same input yields the same files.
func Split(wavPath, outDir string, windowSeconds int) ([]Window, error) {
	if windowSeconds < 1 {
		return nil, services.Wrap(services.ErrValidation, "split audio",
			fmt.Sprintf("window must be at least one second, got %d", windowSeconds), nil)
	}

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, services.Wrap(services.ErrInputUnreadable, "split audio", "", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, services.Wrap(services.ErrInputUnreadable, "split audio", "", err)
	}
	header, err := ReadHeader(f, info.Size())
	if err != nil {
		return nil, services.Wrap(services.ErrInputUnreadable, "split audio", "", err)
	}
	if !header.Format.IsCanonical() {
		return nil, services.Wrap(services.ErrInputUnreadable, "split audio", "",
			fmt.Errorf("%s is not 16 kHz mono 16-bit PCM", filepath.Base(wavPath)))
	}
	frames := header.Frames()
	if frames == 0 {
		return nil, services.Wrap(services.ErrInputUnreadable, "split audio", "The audio file contains no samples", nil)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "split audio", "", err)
	}
	if err := removeChunks(outDir); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "split audio", "", err)
	}

	align := int64(header.Format.BlockAlign())
	rate := int64(header.Format.SampleRate)
	framesPerWindow := rate * int64(windowSeconds)
	data := io.NewSectionReader(f, header.DataOffset, frames*align)

	windows := make([]Window, 0, (frames+framesPerWindow-1)/framesPerWindow)
	for index, start := 0, int64(0); start < frames; index, start = index+1, start+framesPerWindow {
		count := min(framesPerWindow, frames-start)
		path := filepath.Join(outDir, fmt.Sprintf(ChunkPattern, index))
		if err := writeWindow(path, header.Format, io.NewSectionReader(data, start*align, count*align), count*align); err != nil {
			return nil, err
		}
		windows = append(windows, Window{
			Index:    index,
			Path:     path,
			Offset:   float64(index * windowSeconds),
			Duration: float64(count) / float64(rate),
		})
	}
	return windows, nil
}

func writeWindow(path string, format Format, samples io.Reader, size int64) error {
	var buf bytes.Buffer
	buf.Grow(int(44 + size))
	if err := EncodeHeader(&buf, format, size); err != nil {
		return services.Wrap(services.ErrInputUnreadable, "split audio", "", err)
	}
	if _, err := io.CopyN(&buf, samples, size); err != nil {
		return services.Wrap(services.ErrInputUnreadable, "split audio", "", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrStorageFailure, "split audio", "", err)
	}
	return nil
}

// RemoveChunks deletes split windows from dir, leaving other files alone.
func RemoveChunks(dir string) error {
	err := removeChunks(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func removeChunks(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !chunkNamePattern.MatchString(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
