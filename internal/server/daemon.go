package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"dcatwiz/internal/blobstore"
	"dcatwiz/internal/config"
	"dcatwiz/internal/jobs"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/session"
	"dcatwiz/internal/wizard"
)

// Components bundles the long-lived subsystems the daemon coordinates.
type Components struct {
	Blobs      *blobstore.Store
	Sessions   *session.Store
	Registry   *jobs.Registry
	Runner     *jobs.Runner
	Controller *wizard.Controller
}

// Daemon runs the background workers, the HTTP API, and periodic
// housekeeping, and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	blobs      *blobstore.Store
	sessions   *session.Store
	registry   *jobs.Registry
	runner     *jobs.Runner
	controller *wizard.Controller

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	BlobDBPath     string `json:"blob_db_path"`
	LockFilePath   string `json:"lock_file_path"`
	ActiveJobs     int    `json:"active_jobs"`
	ActiveSessions int    `json:"active_sessions"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, components Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components.Blobs == nil || components.Sessions == nil ||
		components.Registry == nil || components.Runner == nil || components.Controller == nil {
		return nil, errors.New("daemon requires config and all components")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "dcatwizd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger.With(logging.FieldComponent, "daemon"),
		blobs:      components.Blobs,
		sessions:   components.Sessions,
		registry:   components.Registry,
		runner:     components.Runner,
		controller: components.Controller,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches the worker pool, API server,
// and housekeeping loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dcatwiz daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.runner.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.runner.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.wg.Add(1)
	go d.housekeeping(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started", "lock", d.lockPath, "bind", d.cfg.Paths.APIBind)
	return nil
}

// Stop shuts down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.runner.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.blobs.Close()
}

// Addr returns the API server's listen address, empty until started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		BlobDBPath:     d.blobs.Path(),
		LockFilePath:   d.lockPath,
		ActiveJobs:     d.registry.Len(),
		ActiveSessions: len(d.sessions.WorkflowIDs()),
	}
}

// housekeeping periodically expires idle sessions, finished job records, and
// aged durable blobs.
func (d *Daemon) housekeeping(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Workflow.HousekeepingInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runHousekeeping(ctx)
		}
	}
}

func (d *Daemon) runHousekeeping(ctx context.Context) {
	sessionTTL := time.Duration(d.cfg.Workflow.SessionTTLMinutes) * time.Minute
	jobRetention := time.Duration(d.cfg.Workflow.JobRetentionMinutes) * time.Minute
	blobRetention := time.Duration(d.cfg.Workflow.BlobRetentionHours) * time.Hour

	sweptSessions := d.sessions.Sweep(sessionTTL)
	sweptJobs := d.registry.Sweep(jobRetention)
	removedBlobs, err := d.blobs.Cleanup(ctx, blobRetention)
	if err != nil {
		d.logger.Warn("blob cleanup failed", "error", err)
	}
	if sweptSessions > 0 || sweptJobs > 0 || removedBlobs > 0 {
		d.logger.Debug("housekeeping pass",
			"sessions_expired", sweptSessions,
			"jobs_expired", sweptJobs,
			"blobs_removed", removedBlobs)
	}
}
