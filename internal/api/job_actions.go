package api

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/services"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/workflow"
	"studyscribe/internal/workspace"
)

// Submit queues req for transcription and returns immediately. Two jobs may
// not share a session directory while either is unfinished.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if s.executor == nil || s.transcriber == nil {
		return SubmitResponse{}, services.Wrap(services.ErrConfiguration, "submit",
			"Transcription requires the daemon; run 'studyscribe serve'", nil)
	}
	audioPath := strings.TrimSpace(req.AudioPath)
	if audioPath == "" {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "submit", "audio_path is required", nil)
	}
	audioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "submit", "audio_path is invalid", err)
	}
	sessionDir, err := workspace.ResolveSessionDir(s.cfg.SessionsDir(), req.SessionDir, uuid.NewString())
	if err != nil {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "submit", "session_dir is invalid", err)
	}

	// Claim before creating the record so a concurrent submit cannot slip in.
	if owner, ok := s.claimSession(sessionDir, ""); !ok {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "submit",
			fmt.Sprintf("session %s already has an unfinished job %s", sessionDir, owner), nil)
	}
	job, err := s.store.Create(ctx, jobs.Spec{SourcePath: audioPath, SessionDir: sessionDir})
	if err != nil {
		s.releaseSession(sessionDir)
		return SubmitResponse{}, err
	}
	s.mu.Lock()
	s.active[sessionDir] = job.ID
	s.mu.Unlock()

	work := s.transcriptionWork(transcribe.Request{AudioPath: audioPath, SessionDir: sessionDir})
	release := workflow.OnFinish(func() { s.releaseSession(sessionDir) })
	if err := s.executor.Submit(job.ID, work, release); err != nil {
		s.releaseSession(sessionDir)
		if _, uerr := s.store.Update(ctx, job.ID, jobs.Failed("The service is shutting down; submit again later", "")); uerr != nil {
			s.logger.Warn("failed to mark rejected job", logging.String(logging.FieldJobID, job.ID), logging.Error(uerr))
		}
		return SubmitResponse{}, fmt.Errorf("submit job: %w", err)
	}

	s.logger.Info("transcription queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("audio_path", audioPath),
		logging.String(logging.FieldSessionDir, sessionDir),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return SubmitResponse{JobID: job.ID, SessionDir: sessionDir}, nil
}

func (s *Service) transcriptionWork(req transcribe.Request) workflow.Work {
	return func(ctx context.Context, report workflow.Reporter) (workflow.Outcome, error) {
		started := s.now()
		result, err := s.transcriber.Run(ctx, req, report)
		if err != nil {
			s.notify(ctx, "transcription failure", func() error {
				return s.notifier.NotifyTranscriptionFailed(ctx, req.AudioPath, services.UserMessage(err))
			})
			return workflow.Outcome{}, err
		}
		s.notify(ctx, "transcription completed", func() error {
			return s.notifier.NotifyTranscriptionCompleted(ctx, req.AudioPath, req.SessionDir, result.Segments, s.now().Sub(started))
		})
		return workflow.Outcome{
			Result:  result.TranscriptPath,
			Message: fmt.Sprintf("Transcribed %d segments into %d chunks", result.Segments, result.Chunks),
		}, nil
	}
}

// notify sends an alert; delivery problems never affect the job.
func (s *Service) notify(ctx context.Context, what string, send func() error) {
	if err := send(); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "notification failed", "notification_failed",
			logging.String("notification", what),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the job result is unaffected"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// Get returns the polling view of a job.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, services.Wrap(services.ErrValidation, "get job", "job id is required", nil)
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return FromJob(job), nil
}

// Describe returns the listing view of a job.
func (s *Service) Describe(ctx context.Context, id string) (JobSummary, error) {
	job, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return JobSummary{}, err
	}
	return FromJobSummary(job), nil
}

// List returns jobs newest first, optionally filtered by status names.
func (s *Service) List(ctx context.Context, statusNames ...string) ([]JobSummary, error) {
	statuses := make([]jobs.Status, 0, len(statusNames))
	for _, name := range statusNames {
		if strings.TrimSpace(name) == "" {
			continue
		}
		status, err := jobs.ParseStatus(name)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "list jobs", err.Error(), err)
		}
		statuses = append(statuses, status)
	}
	records, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(records), nil
}

// Stale returns running jobs that have not been updated within the
// configured window. They are reported only; nothing requeues them.
func (s *Service) Stale(ctx context.Context) ([]JobSummary, error) {
	records, err := s.store.ListStale(ctx, s.now().Add(-s.cfg.StaleAfter()))
	if err != nil {
		return nil, err
	}
	return FromJobs(records), nil
}
