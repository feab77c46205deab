package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"studyscribe/internal/deps"
	"studyscribe/internal/logging"
	"studyscribe/internal/services"
)

// NormalizedFile is the canonical waveform written into the work directory.
const NormalizedFile = "audio.wav"

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Normalizer converts input audio to the canonical waveform.
type Normalizer struct {
	binary  string
	checker deps.Checker
	run     CommandRunner
	logger  *slog.Logger
}

// NormalizerOption customizes a Normalizer.
type NormalizerOption func(*Normalizer)

// WithChecker overrides the ffmpeg availability check.
func WithChecker(checker deps.Checker) NormalizerOption {
	return func(n *Normalizer) {
		if checker != nil {
			n.checker = checker
		}
	}
}

// WithCommandRunner overrides how ffmpeg is executed (tests).
func WithCommandRunner(run CommandRunner) NormalizerOption {
	return func(n *Normalizer) {
		if run != nil {
			n.run = run
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer builds a normalizer that shells out to binary.
func NewNormalizer(binary string, opts ...NormalizerOption) *Normalizer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	n := &Normalizer{
		binary:  binary,
		checker: deps.NewProbe(deps.FFmpegRequirement(binary)),
		run:     runCommand,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Available reports whether the decoding tool can be found.
func (n *Normalizer) Available() deps.Status {
	return n.checker.Status()
}

// Normalize returns the path of a canonical waveform for inputPath. Canonical
// WAV input is returned unchanged; anything else is converted with ffmpeg into
// workDir/audio.wav.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, workDir string) (string, error) {
	info, err := os.Stat(inputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio",
			"The audio file does not exist", err)
	case err != nil:
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio", "", err)
	case info.IsDir():
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio", "",
			fmt.Errorf("%s is a directory", inputPath))
	case info.Size() == 0:
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio",
			"The audio file is empty", nil)
	}

	if strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		if header, err := Inspect(inputPath); err == nil && header.Format.IsCanonical() {
			n.logger.Debug("input already canonical; skipping conversion",
				logging.String("input", inputPath),
				logging.Duration("duration", header.Duration()),
			)
			return inputPath, nil
		}
	}

	if status := n.checker.Status(); !status.Available {
		return "", services.Wrap(services.ErrDecodingToolUnavailable, "normalize audio", "",
			errors.New(status.Detail))
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStorageFailure, "normalize audio", "", err)
	}
	dest := filepath.Join(workDir, NormalizedFile)
	tmp := filepath.Join(workDir, ".normalize.tmp.wav")
	defer os.Remove(tmp)

	args := buildFFmpegArgs(inputPath, tmp)
	n.logger.Info("converting audio",
		logging.String(logging.FieldEventType, "audio_normalize"),
		logging.String("input", inputPath),
		logging.String("output", dest),
	)
	if output, err := n.run(ctx, n.binary, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", services.Wrap(services.ErrDecodingToolUnavailable, "normalize audio", "", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio", "",
			fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output))))
	}

	header, err := Inspect(tmp)
	if err != nil {
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio", "", err)
	}
	if !header.Format.IsCanonical() {
		return "", services.Wrap(services.ErrInputUnreadable, "normalize audio", "",
			fmt.Errorf("ffmpeg produced %d Hz, %d channel audio", header.Format.SampleRate, header.Format.Channels))
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", services.Wrap(services.ErrStorageFailure, "normalize audio", "", err)
	}
	return dest, nil
}

func buildFFmpegArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}
