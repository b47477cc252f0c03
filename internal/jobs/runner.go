package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dcatwiz/internal/logging"
	"dcatwiz/internal/services"
)

// Task is one long-running pipeline stage executed off the request path.
// It reports checkpoints through the Reporter and returns the payload that
// becomes the job's terminal result.
type Task func(ctx context.Context, rep *Reporter) (any, error)

// Reporter lets a running task publish progress for its job.
type Reporter struct {
	registry *Registry
	jobID    string
}

// Step records a checkpoint with a monotonically non-decreasing percent.
func (r *Reporter) Step(label string, percent float64) {
	r.registry.UpdateProgress(r.jobID, label, percent)
}

type queued struct {
	jobID string
	task  Task
}

// Runner executes tasks on a bounded worker pool and records their outcome
// in the registry. Launch is fire-and-forget; there is no cancellation
// primitive — an abandoned task runs to its terminal state and its result is
// simply never consumed.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
	tasks    chan queued

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	workers int
}

// NewRunner constructs a runner backed by the given registry.
func NewRunner(registry *Registry, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		registry: registry,
		logger:   logger,
		tasks:    make(chan queued, workers*4),
		workers:  workers,
	}
}

// Start launches the worker pool. It is an error to start a running pool.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("job runner already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(runCtx)
	}
	return nil
}

// Stop drains the pool. In-flight tasks observe context cancellation through
// their argument; queued tasks that never started are failed so pollers do
// not spin forever.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	close(r.tasks)
	r.wg.Wait()
	for q := range r.tasks {
		r.registry.Fail(q.jobID, "job runner stopped")
	}
}

// Launch registers jobID and queues the task. Callers allot a fresh job
// identifier per request, so duplicate submissions run concurrently and the
// last completion wins in durable storage.
func (r *Runner) Launch(jobID string, task Task) error {
	r.registry.Create(jobID)

	// The send happens under the mutex so Stop cannot close the channel
	// between the running check and the enqueue.
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		r.registry.Fail(jobID, "job runner not running")
		return errors.New("job runner not running")
	}
	r.registry.UpdateProgress(jobID, "starting", 5)
	select {
	case r.tasks <- queued{jobID: jobID, task: task}:
		return nil
	default:
		r.registry.Fail(jobID, "job queue full")
		return errors.New("job queue full")
	}
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-r.tasks:
			if !ok {
				return
			}
			r.run(ctx, q)
		}
	}
}

func (r *Runner) run(ctx context.Context, q queued) {
	jobCtx := services.WithJobID(ctx, q.jobID)
	log := logging.WithContext(jobCtx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			r.registry.Fail(q.jobID, fmt.Sprintf("panic: %v", rec))
			log.Error("job panicked", slog.Any("panic", rec))
		}
	}()

	result, err := q.task(jobCtx, &Reporter{registry: r.registry, jobID: q.jobID})
	if err != nil {
		r.registry.Fail(q.jobID, err.Error())
		log.Warn("job failed", slog.String("error", err.Error()))
		return
	}
	if err := r.registry.Complete(q.jobID, result); err != nil {
		r.registry.Fail(q.jobID, fmt.Sprintf("encode result: %v", err))
		log.Error("job result encoding failed", slog.String("error", err.Error()))
		return
	}
	log.Info("job completed")
}
