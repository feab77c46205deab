package preflight

import (
	"context"

	"studyscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for the given config. The LLM check
// only runs when a key is configured because answering questions is optional.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDiskSpace("Data disk", cfg.Paths.DataDir, cfg.Storage.MinFreePercent, cfg.Storage.MinFreeMB),
	}
	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Path}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	if cfg.LLM.APIKey != "" {
		results = append(results, CheckLLM(ctx, cfg.LLM))
	}
	return results
}
