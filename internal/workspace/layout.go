package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkDirName is the scratch subdirectory inside a session.
const WorkDirName = ".work"

// ResolveSessionDir picks the session directory for a job. An explicit
// request is made absolute; otherwise a directory named after the job is
// allocated under sessionsRoot.
func ResolveSessionDir(sessionsRoot, requested, jobID string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if strings.TrimSpace(jobID) == "" {
			return "", fmt.Errorf("session directory or job id required")
		}
		return filepath.Join(sessionsRoot, jobID), nil
	}
	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", fmt.Errorf("resolve session dir: %w", err)
	}
	return abs, nil
}

// WorkDir returns the scratch directory for sessionDir.
func WorkDir(sessionDir string) string {
	return filepath.Join(sessionDir, WorkDirName)
}

// Prepare creates the session directory and its private scratch directory.
func Prepare(sessionDir string) (string, error) {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	work := WorkDir(sessionDir)
	if err := os.MkdirAll(work, 0o700); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return work, nil
}

// RemoveWorkDir deletes the scratch directory of sessionDir.
func RemoveWorkDir(sessionDir string) error {
	return os.RemoveAll(WorkDir(sessionDir))
}
