package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestProbeCachesPositiveResultOnly(t *testing.T) {
	calls := 0
	installed := false
	lookPath := func(name string) (string, error) {
		calls++
		if !installed {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	probe := NewProbe(FFmpegRequirement("ffmpeg"), WithLookPath(lookPath))

	if probe.Status().Available {
		t.Fatal("expected ffmpeg to be unavailable")
	}
	installed = true
	status := probe.Status()
	if !status.Available || status.Path != "/usr/bin/ffmpeg" {
		t.Fatalf("expected probe to re-check after a miss, got %#v", status)
	}
	probe.Status()
	if calls != 2 {
		t.Fatalf("expected positive result to be cached, lookPath called %d times", calls)
	}
}

func TestStaticChecker(t *testing.T) {
	var checker Checker = Static{Name: "uvx", Available: false, Detail: "disabled"}
	if checker.Status().Available || checker.Status().Detail != "disabled" {
		t.Fatalf("unexpected static status %#v", checker.Status())
	}
}
