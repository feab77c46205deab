package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"studyscribe/internal/config"
	"studyscribe/internal/deps"
	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/notifications"
	"studyscribe/internal/qa"
	"studyscribe/internal/retrieval"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/workflow"
)

// JobStore is the job persistence the service reads and writes.
type JobStore interface {
	Create(ctx context.Context, spec jobs.Spec) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Update(ctx context.Context, id string, patch jobs.Patch) (*jobs.Job, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

// Executor runs submitted work. *workflow.Executor satisfies it.
type Executor interface {
	Submit(jobID string, work workflow.Work, opts ...workflow.SubmitOption) error
	Stats() workflow.Stats
}

// Transcriber runs one recording end to end. *transcribe.Pipeline satisfies it.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request, report transcribe.Reporter) (transcribe.Result, error)
}

// Answerer turns ranked context into a cited answer. *qa.Answerer satisfies it.
type Answerer interface {
	Ask(ctx context.Context, question string, results []retrieval.Result) (qa.Answer, error)
}

// Service is the operation surface shared by the HTTP server and the CLI.
type Service struct {
	cfg         *config.Config
	store       JobStore
	executor    Executor
	transcriber Transcriber
	answerer    Answerer
	notifier    notifications.Service
	depsCheck   func() []deps.Status
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	active map[string]string
}

// Option customizes a Service.
type Option func(*Service)

// WithAnswerer enables question answering.
func WithAnswerer(answerer Answerer) Option {
	return func(s *Service) {
		s.answerer = answerer
	}
}

// WithNotifier publishes job completion and failure alerts.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithDependencyCheck overrides how external binaries are reported.
func WithDependencyCheck(check func() []deps.Status) Option {
	return func(s *Service) {
		if check != nil {
			s.depsCheck = check
		}
	}
}

// WithClock overrides the time source used for stale detection.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the service. executor and transcriber may be nil for
// read-only use (the CLI inspecting jobs without a running daemon).
func NewService(cfg *config.Config, store JobStore, executor Executor, transcriber Transcriber, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		cfg:         cfg,
		store:       store,
		executor:    executor,
		transcriber: transcriber,
		logger:      logging.NewComponentLogger(logger, "api"),
		notifier:    notifications.NewService(config.Notifications{}),
		now:         time.Now,
		active:      make(map[string]string),
	}
	s.depsCheck = func() []deps.Status {
		return deps.CheckBinaries([]deps.Requirement{
			deps.FFmpegRequirement(cfg.Transcription.FFmpegBinary),
			deps.UVXRequirement(cfg.Transcription.UVXBinary),
		})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) retrievalParams() retrieval.Params {
	return retrieval.Params{
		TargetChars:  s.cfg.Retrieval.TargetChars,
		OverlapChars: s.cfg.Retrieval.OverlapChars,
	}
}

// claimSession records sessionDir as owned by jobID. It reports false when
// another job still owns it.
func (s *Service) claimSession(sessionDir, jobID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.active[sessionDir]; ok {
		return owner, false
	}
	s.active[sessionDir] = jobID
	return jobID, true
}

func (s *Service) releaseSession(sessionDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionDir)
}

// ActiveSessions returns the session directories with a queued or running job.
func (s *Service) ActiveSessions() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.active))
	for dir := range s.active {
		out[dir] = struct{}{}
	}
	return out
}
