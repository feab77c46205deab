package api

import (
	"context"
	"os"
)

// Status reports executor, job and dependency state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		PID:            os.Getpid(),
		DatabasePath:   s.cfg.DatabasePath(),
		SessionsDir:    s.cfg.SessionsDir(),
		Jobs:           MergeJobStats(stats),
		ActiveSessions: len(s.ActiveSessions()),
		Dependencies:   FromDependencies(s.depsCheck()),
	}
	if s.executor != nil {
		status.Executor = FromExecutorStats(s.executor.Stats())
	}
	return status, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
