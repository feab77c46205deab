package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"studyscribe/internal/deps"
	"studyscribe/internal/services"
	"studyscribe/internal/transcript"
)

// Service runs WhisperX through uvx on CPU and returns timestamped segments.
type Service struct {
	cfg           Config
	checker       deps.Checker
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.UVXBinary) == "" {
		cfg.UVXBinary = UVXCommand
	}
	return &Service{
		cfg:     cfg,
		checker: deps.NewProbe(deps.UVXRequirement(cfg.UVXBinary)),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithChecker replaces the uvx availability check (for testing).
func (s *Service) WithChecker(checker deps.Checker) {
	if checker != nil {
		s.checker = checker
	}
}

// Name identifies the engine in logs.
func (s *Service) Name() string {
	return "whisperx/" + s.Model()
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Available reports whether the uvx launcher can be found.
func (s *Service) Available() deps.Status {
	return s.checker.Status()
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs whisperx on one canonical WAV window. Offsets in the
// returned segments are relative to the start of wavPath. workDir receives
// the raw whisperx output.
func (s *Service) Transcribe(ctx context.Context, wavPath, workDir string) ([]transcript.Segment, error) {
	if wavPath == "" {
		return nil, services.Wrap(services.ErrValidation, "whisperx", "source path required", nil)
	}
	if status := s.checker.Status(); !status.Available {
		return nil, services.Wrap(services.ErrInferenceBackendUnavailable, "whisperx", "", errors.New(status.Detail))
	}

	baseName := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	if workDir == "" {
		workDir = filepath.Dir(wavPath)
	}
	outputDir := filepath.Join(workDir, "whisperx_"+baseName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "whisperx", "", err)
	}

	if err := s.run(ctx, s.cfg.UVXBinary, s.buildArgs(wavPath, outputDir)...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, services.Wrap(services.ErrInferenceBackendUnavailable, "whisperx", "", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrInferenceFailure, "whisperx", "", err)
	}

	raw, err := LoadSegments(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrInferenceFailure, "whisperx", "", err)
	}
	segments := make([]transcript.Segment, 0, len(raw))
	for _, seg := range raw {
		segments = append(segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return segments, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	computeType := s.cfg.ComputeType
	if computeType == "" {
		computeType = DefaultComputeType
	}
	args := []string{
		"--index-url", PypiIndexURL,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_method", VADMethodSilero,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
		"--device", CPUDevice,
		"--compute_type", computeType,
	}
	if lang := strings.ToLower(strings.TrimSpace(s.cfg.Language)); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperXPayload is the JSON structure from WhisperX output.
type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}
