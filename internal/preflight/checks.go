package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"studyscribe/internal/config"
	"studyscribe/internal/deps"
	"studyscribe/internal/services"
	"studyscribe/internal/services/llm"
)

// CheckLLM verifies that the answer-synthesis endpoint is reachable and the
// key is valid. It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, cfg config.LLM) Result {
	const name = "Answer LLM"
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace reports free space on the filesystem holding path against
// the configured thresholds.
func CheckDiskSpace(name, path string, minPercent, minMB int) Result {
	usage, err := Usage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%d MB free (%.1f%%)", usage.FreeMB(), usage.FreePercent())
	if err := usage.check(minPercent, minMB); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s, %v", detail, err)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
// Both the daemon and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		deps.FFmpegRequirement(cfg.Transcription.FFmpegBinary),
		deps.UVXRequirement(cfg.Transcription.UVXBinary),
	})
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return services.UserMessage(err)
	}
	return err.Error()
}
