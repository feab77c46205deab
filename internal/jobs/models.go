package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var allStatuses = []Status{StatusQueued, StatusRunning, StatusSuccess, StatusError}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", value)
}

// IsTerminal reports whether no further updates are accepted.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

func (s Status) canTransitionTo(next Status) bool {
	switch s {
	case StatusQueued:
		return true
	case StatusRunning:
		return next != StatusQueued
	default:
		return false
	}
}

// Job is a durable lifecycle record.
type Job struct {
	ID         string
	Status     Status
	Progress   int
	Message    string
	Result     string
	ErrorKind  string
	SourcePath string
	SessionDir string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Spec carries the optional descriptive fields recorded at creation.
type Spec struct {
	SourcePath string
	SessionDir string
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Status    *Status
	Progress  *int
	Message   *string
	Result    *string
	ErrorKind *string
}

// Running returns a patch that marks a job running.
func Running(message string) Patch {
	status := StatusRunning
	return Patch{Status: &status, Message: &message}
}

// Progress returns a patch that records progress and a status message.
func Progress(percent int, message string) Patch {
	return Patch{Progress: &percent, Message: &message}
}

// Succeeded returns a terminal success patch carrying the result reference.
func Succeeded(result, message string) Patch {
	status := StatusSuccess
	return Patch{Status: &status, Result: &result, Message: &message}
}

// Failed returns a terminal error patch.
func Failed(message, kind string) Patch {
	status := StatusError
	return Patch{Status: &status, Message: &message, ErrorKind: &kind}
}
