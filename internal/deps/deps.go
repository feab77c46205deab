package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency studyscribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// FFmpegRequirement describes the audio decoding tool.
func FFmpegRequirement(binary string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required to convert uploaded audio to 16 kHz mono WAV",
	}
}

// UVXRequirement describes the launcher used to run whisperx.
func UVXRequirement(binary string) Requirement {
	return Requirement{
		Name:        "uvx",
		Command:     binary,
		Description: "Required for WhisperX-driven transcription",
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	return checkBinaries(requirements, exec.LookPath)
}

func checkBinaries(requirements []Requirement, lookPath func(string) (string, error)) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkOne(req, lookPath))
	}
	return results
}

func checkOne(req Requirement, lookPath func(string) (string, error)) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := lookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = resolved
	status.Available = true
	return status
}
