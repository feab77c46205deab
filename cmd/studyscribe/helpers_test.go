package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyscribe/internal/api"
	"studyscribe/internal/audio"
	"studyscribe/internal/config"
	"studyscribe/internal/daemon"
	"studyscribe/internal/deps"
	"studyscribe/internal/jobs"
	"studyscribe/internal/testsupport"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	apiAddr    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"STUDYSCRIBE_LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithWindowSeconds(30))
	cfg.LLM.APIKey = ""
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, apiAddr: "127.0.0.1:1"}
}

// startDaemon runs a daemon backed by a fake transcription engine.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	store, err := jobs.Open(env.cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	executor := workflow.NewExecutor(store, nil, 1)
	normalizer := audio.NewNormalizer("ffmpeg", audio.WithChecker(deps.Static{Name: "FFmpeg", Detail: "not installed"}))
	pipeline := transcribe.NewPipeline(env.cfg, normalizer, &testsupport.FakeEngine{}, nil)
	service := api.NewService(env.cfg, store, executor, pipeline, nil)
	d, err := daemon.New(env.cfg, store, executor, service, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	env.apiAddr = d.Addr()
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", env.configPath, "--api", env.apiAddr}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[transcription]\nwindow_seconds = %d\n\n[storage]\nmin_free_percent = 0\nmin_free_mb = 0\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Transcription.WindowSeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
