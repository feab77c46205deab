package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"studyscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Jobs.MaxWorkers = 1
	cfgVal.Transcription.WindowSeconds = 30
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.BaseURL = "http://127.0.0.1:0/v1/"
	cfgVal.Storage.MinFreePercent = 0
	cfgVal.Storage.MinFreeMB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the executor pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jobs.MaxWorkers = n
	}
}

// WithWindowSeconds sets the transcription window length.
func WithWindowSeconds(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.WindowSeconds = seconds
	}
}

// WithChunking overrides the retrieval chunk sizes.
func WithChunking(target, overlap int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retrieval.TargetChars = target
		b.cfg.Retrieval.OverlapChars = overlap
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and uvx are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "uvx"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
