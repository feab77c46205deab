package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"studyscribe/internal/api"
	"studyscribe/internal/config"
	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/workspace"
)

// Executor is the worker pool lifecycle the daemon drives.
type Executor interface {
	Start(ctx context.Context) error
	Stop()
}

// Daemon coordinates the executor and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	executor Executor
	service  *api.Service
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, executor Executor, service *api.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || executor == nil || service == nil {
		return nil, errors.New("daemon requires config, store, executor, and service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		executor: executor,
		service:  service,
		server:   newAPIServer(cfg.Paths.APIBind, service, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, starts the executor, and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another studyscribe daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.executor.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start executor: %w", err)
	}
	if err := d.server.start(runCtx); err != nil {
		cancel()
		d.executor.Stop()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)

	d.reportStale(runCtx)
	d.cleanWorkDirs(runCtx)
	d.logger.Info("studyscribe daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.Addr()),
	)
	return nil
}

// Stop shuts down the API, stops the executor and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.server.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.executor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("studyscribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr is the address the API listens on, or empty before Start.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// reportStale logs running records left behind by an earlier process. They
// stay running; nothing requeues them.
func (d *Daemon) reportStale(ctx context.Context) {
	stale, err := d.store.ListStale(ctx, time.Now().Add(-d.cfg.StaleAfter()))
	if err != nil {
		d.logger.Warn("stale job scan failed", logging.Error(err))
		return
	}
	for _, job := range stale {
		logging.WarnWithContext(d.logger, "job appears orphaned", "job_stale",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldSessionDir, job.SessionDir),
			logging.String("updated_at", api.FormatTime(job.UpdatedAt)),
			logging.String(logging.FieldImpact, "the job will not finish on its own"),
			logging.String(logging.FieldErrorHint, "resubmit the audio to transcribe it again"),
		)
	}
}

func (d *Daemon) cleanWorkDirs(ctx context.Context) {
	result := workspace.CleanStale(ctx, d.cfg.SessionsDir(), d.cfg.StaleAfter(), d.service.ActiveSessions(), d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("removed stale work directories", logging.Int("count", len(result.Removed)))
	}
	for _, failure := range result.Errors {
		d.logger.Warn("work directory cleanup failed",
			logging.String("path", failure.Path),
			logging.Error(failure.Error),
		)
	}
}
