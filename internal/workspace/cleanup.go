package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyscribe/internal/logging"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/transcript"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes session scratch directories under sessionsRoot whose
// modification time is older than maxAge. Sessions listed in active are left
// alone.
func CleanStale(ctx context.Context, sessionsRoot string, maxAge time.Duration, active map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	sessionsRoot = strings.TrimSpace(sessionsRoot)
	if sessionsRoot == "" {
		return result
	}

	entries, err := os.ReadDir(sessionsRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: sessionsRoot, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		sessionDir := filepath.Join(sessionsRoot, entry.Name())
		if _, busy := active[sessionDir]; busy {
			continue
		}
		workDir := WorkDir(sessionDir)
		info, err := os.Stat(workDir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(workDir); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
			logger.Warn("failed to remove stale work directory",
				logging.String("path", workDir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check data_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, workDir)
		logger.Info("removed stale work directory",
			logging.String("path", workDir),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workspace_cleanup"),
		)
	}

	return result
}

// SessionInfo describes a session directory on disk.
type SessionInfo struct {
	Name          string
	Path          string
	ModTime       time.Time
	Size          int64
	HasTranscript bool
	HasChunks     bool
	HasWorkDir    bool
}

// ListSessions returns all session directories under sessionsRoot.
func ListSessions(sessionsRoot string) ([]SessionInfo, error) {
	sessionsRoot = strings.TrimSpace(sessionsRoot)
	if sessionsRoot == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(sessionsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(sessionsRoot, entry.Name())
		size, _ := dirSize(dirPath)
		sessions = append(sessions, SessionInfo{
			Name:          entry.Name(),
			Path:          dirPath,
			ModTime:       info.ModTime(),
			Size:          size,
			HasTranscript: exists(transcript.JSONPath(dirPath)),
			HasChunks:     exists(retrieval.ChunksPath(dirPath)),
			HasWorkDir:    exists(WorkDir(dirPath)),
		})
	}
	return sessions, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
