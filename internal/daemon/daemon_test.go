package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

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

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	executor := workflow.NewExecutor(store, nil, cfg.Jobs.MaxWorkers)
	normalizer := audio.NewNormalizer("ffmpeg", audio.WithChecker(deps.Static{Name: "FFmpeg", Detail: "not installed"}))
	pipeline := transcribe.NewPipeline(cfg, normalizer, &testsupport.FakeEngine{}, nil)
	service := api.NewService(cfg, store, executor, pipeline, nil)
	d, err := daemon.New(cfg, store, executor, service, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}
	if d.Addr() == "" {
		t.Fatal("expected listening address")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to be rejected")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonServesTranscriptionEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWindowSeconds(30))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.Addr()

	input := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteWAV(t, input, 90)
	body, _ := json.Marshal(api.SubmitRequest{AudioPath: input})
	resp, err := http.Post(base+"/api/transcriptions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var submitted api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var job api.Job
	lastProgress := 0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/jobs/" + submitted.JobID)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		resp.Body.Close()
		if job.Progress < lastProgress {
			t.Fatalf("progress went backwards: %d after %d", job.Progress, lastProgress)
		}
		lastProgress = job.Progress
		if job.Status == string(jobs.StatusSuccess) || job.Status == string(jobs.StatusError) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != string(jobs.StatusSuccess) || job.Progress != 100 {
		t.Fatalf("unexpected final job %+v", job)
	}

	search, _ := json.Marshal(api.SearchRequest{Query: "window part", SessionDirs: []string{submitted.SessionDir}})
	resp, err = http.Post(base+"/api/search", "application/json", bytes.NewReader(search))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	defer resp.Body.Close()
	var results api.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(results.Results) == 0 {
		t.Fatalf("unexpected search reply %d %+v", resp.StatusCode, results)
	}

	missing, err := http.Get(base + "/api/jobs/does-not-exist")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}
