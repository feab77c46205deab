package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"studyscribe/internal/services"
)

// DiskUsage is a snapshot of the filesystem holding a path.
type DiskUsage struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
}

// FreeMB returns the space available to unprivileged users in MiB.
func (u DiskUsage) FreeMB() uint64 {
	return u.FreeBytes / (1024 * 1024)
}

// FreePercent returns the available share of the filesystem.
func (u DiskUsage) FreePercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	return float64(u.FreeBytes) / float64(u.TotalBytes) * 100
}

func (u DiskUsage) check(minPercent, minMB int) error {
	if minPercent > 0 && u.FreePercent() < float64(minPercent) {
		return fmt.Errorf("below %d%% free", minPercent)
	}
	if minMB > 0 && u.FreeMB() < uint64(minMB) {
		return fmt.Errorf("below %d MB free", minMB)
	}
	return nil
}

// Usage reports disk usage for path. Missing trailing components are
// resolved to the nearest existing parent so a session directory can be
// checked before it is created.
func Usage(path string) (DiskUsage, error) {
	target, err := existingAncestor(path)
	if err != nil {
		return DiskUsage{}, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return DiskUsage{}, fmt.Errorf("statfs %s: %w", target, err)
	}
	blockSize := uint64(st.Bsize)
	return DiskUsage{
		Path:       target,
		TotalBytes: uint64(st.Blocks) * blockSize,
		FreeBytes:  uint64(st.Bavail) * blockSize,
	}, nil
}

// EnsureDiskSpace returns a StorageFailure when the filesystem holding path
// is below either threshold. Zero thresholds disable the respective check.
func EnsureDiskSpace(path string, minPercent, minMB int) error {
	if minPercent <= 0 && minMB <= 0 {
		return nil
	}
	usage, err := Usage(path)
	if err != nil {
		return services.Wrap(services.ErrStorageFailure, "disk space check", "", err)
	}
	if err := usage.check(minPercent, minMB); err != nil {
		return services.Wrap(services.ErrStorageFailure, "disk space check", "",
			fmt.Errorf("%s: %d MB free (%.1f%%): %w", usage.Path, usage.FreeMB(), usage.FreePercent(), err))
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	for {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", current, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent for %s", path)
		}
		current = parent
	}
}
