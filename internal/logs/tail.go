package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultPollInterval is how often Follow checks the file for growth.
const DefaultPollInterval = 250 * time.Millisecond

const maxLineBytes = 1 << 20

// Last returns up to n trailing lines of path and the offset just past them.
// A missing file yields no lines and offset zero so followers can wait for it.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, 0, max(n, 0))
	var consumed int64
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			consumed += int64(len(line))
			if n > 0 {
				if len(ring) == n {
					ring = append(ring[:0], ring[1:]...)
				}
				ring = append(ring, string(bytes.TrimRight(line, "\r\n")))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}
	}
	return ring, consumed, nil
}

// Follow emits every complete line appended to path after offset until ctx is
// cancelled or emit returns an error. Partial trailing lines are held back until
// their newline arrives.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string) error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := drain(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func drain(path string, offset int64, emit func(string) error) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return offset, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log: %w", err)
	}

	pending, err := io.ReadAll(io.LimitReader(file, info.Size()-offset))
	if err != nil {
		return offset, fmt.Errorf("read log: %w", err)
	}
	for {
		idx := bytes.IndexByte(pending, '\n')
		if idx < 0 {
			// An unterminated line longer than the cap is emitted as-is.
			if len(pending) >= maxLineBytes {
				if err := emit(string(pending)); err != nil {
					return offset, err
				}
				offset += int64(len(pending))
			}
			return offset, nil
		}
		if err := emit(string(bytes.TrimRight(pending[:idx], "\r"))); err != nil {
			return offset, err
		}
		offset += int64(idx + 1)
		pending = pending[idx+1:]
	}
}
