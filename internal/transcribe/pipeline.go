package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studyscribe/internal/audio"
	"studyscribe/internal/config"
	"studyscribe/internal/logging"
	"studyscribe/internal/preflight"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/services"
	"studyscribe/internal/services/whisperx"
	"studyscribe/internal/transcript"
	"studyscribe/internal/workspace"
)

// Request identifies the input recording and the session it belongs to.
type Request struct {
	AudioPath  string
	SessionDir string
}

// Result describes the artifacts of a successful run.
type Result struct {
	TranscriptPath string
	Segments       int
	Chunks         int
	Windows        int
}

// Pipeline runs the full transcription of one recording.
type Pipeline struct {
	cfg        *config.Config
	normalizer Normalizer
	engine     Engine
	logger     *slog.Logger
}

// NewPipeline wires a pipeline. A nil normalizer or engine is replaced with
// the ffmpeg normalizer or the whisperx engine built from cfg.
func NewPipeline(cfg *config.Config, normalizer Normalizer, engine Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if normalizer == nil {
		normalizer = audio.NewNormalizer(cfg.Transcription.FFmpegBinary, audio.WithLogger(logger))
	}
	if engine == nil {
		engine = NewWhisperXEngine(cfg)
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: normalizer,
		engine:     engine,
		logger:     logging.NewComponentLogger(logger, "transcribe"),
	}
}

// NewWhisperXEngine builds the CPU whisperx engine described by cfg.
func NewWhisperXEngine(cfg *config.Config) Engine {
	return whisperx.NewService(whisperx.Config{
		UVXBinary:   cfg.Transcription.UVXBinary,
		Model:       cfg.Transcription.WhisperXModel,
		Language:    cfg.Transcription.Language,
		ComputeType: cfg.Transcription.ComputeType,
	})
}

// Engine exposes the configured engine for status reporting.
func (p *Pipeline) Engine() Engine {
	return p.engine
}

// Run normalizes, splits and transcribes req.AudioPath, then persists the
// transcript and retrieval chunks into req.SessionDir.
func (p *Pipeline) Run(ctx context.Context, req Request, report Reporter) (Result, error) {
	if report == nil {
		report = nopReporter{}
	}
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "An audio file path is required", nil)
	}
	if strings.TrimSpace(req.SessionDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "A session directory is required", nil)
	}
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSessionDir, req.SessionDir))
	started := time.Now()

	if err := p.ensureSpace(req.SessionDir); err != nil {
		return Result{}, err
	}
	workDir, err := workspace.Prepare(req.SessionDir)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStorageFailure, "prepare session", "", err)
	}

	if err := report.Progress(ctx, 0, "Normalizing audio"); err != nil {
		return Result{}, fmt.Errorf("report progress: %w", err)
	}
	wavPath, err := p.normalizer.Normalize(ctx, req.AudioPath, workDir)
	if err != nil {
		return Result{}, err
	}

	if status := p.engine.Available(); !status.Available {
		return Result{}, services.Wrap(services.ErrInferenceBackendUnavailable, "transcribe", "",
			fmt.Errorf("%s: %s", p.engine.Name(), status.Detail))
	}

	windows, err := audio.Split(wavPath, workDir, p.cfg.Transcription.WindowSeconds)
	if err != nil {
		return Result{}, err
	}
	logger.Info("transcription started",
		logging.String("engine", p.engine.Name()),
		logging.Int("windows", len(windows)),
		logging.Int("window_seconds", p.cfg.Transcription.WindowSeconds),
		logging.String(logging.FieldEventType, "transcription_started"),
	)

	segments, err := Transcribe(ctx, p.engine, windows, workDir, report)
	if err != nil {
		return Result{}, err
	}

	if err := p.ensureSpace(req.SessionDir); err != nil {
		return Result{}, err
	}
	transcriptPath, err := transcript.Save(req.SessionDir, segments)
	if err != nil {
		return Result{}, err
	}
	chunks, _, err := retrieval.EnsureChunks(req.SessionDir, p.retrievalParams())
	if err != nil {
		return Result{}, err
	}

	if !p.cfg.Transcription.KeepWorkFiles {
		if err := workspace.RemoveWorkDir(req.SessionDir); err != nil {
			logging.WarnWithContext(logger, "work directory cleanup failed", "work_dir_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "chunk audio remains on disk until stale cleanup"),
			)
		}
	}

	logger.Info("transcription completed",
		logging.Int("segments", len(segments)),
		logging.Int("chunks", len(chunks)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "transcription_completed"),
	)
	return Result{
		TranscriptPath: transcriptPath,
		Segments:       len(segments),
		Chunks:         len(chunks),
		Windows:        len(windows),
	}, nil
}

func (p *Pipeline) retrievalParams() retrieval.Params {
	return retrieval.Params{
		TargetChars:  p.cfg.Retrieval.TargetChars,
		OverlapChars: p.cfg.Retrieval.OverlapChars,
	}
}

func (p *Pipeline) ensureSpace(sessionDir string) error {
	return preflight.EnsureDiskSpace(sessionDir, p.cfg.Storage.MinFreePercent, p.cfg.Storage.MinFreeMB)
}
