// Package queue runs background jobs on a fixed pool of workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Enqueue after Stop.
	ErrClosed = errors.New("queue is closed")
	// ErrQueueFull is returned by Enqueue when the buffer has no room.
	ErrQueueFull = errors.New("queue is full")
	// ErrDuplicateJob is returned when a job with the same ID is already tracked.
	ErrDuplicateJob = errors.New("duplicate job id")
)

// Job is a unit of background work. Run is called at most once.
type Job interface {
	ID() string
	Run(ctx context.Context) error
}

// enqueuer is implemented by jobs that track their own hand-off.
type enqueuer interface {
	Enqueued()
}

// failureLogger is implemented by jobs that log their own failures. The runtime
// then logs returned errors at debug level only.
type failureLogger interface {
	LogsFailures() bool
}

// aborter is implemented by jobs that must be told when they will never run.
type aborter interface {
	Abort(ctx context.Context, err error)
}

// FailureHandler receives errors returned (or panics raised) by jobs.
type FailureHandler func(id string, err error)

// Handle tracks one enqueued job.
type Handle struct {
	id   string
	job  Job
	done chan struct{}
	err  error
}

func newHandle(job Job) *Handle {
	return &Handle{id: job.ID(), job: job, done: make(chan struct{})}
}

// ID returns the job ID.
func (h *Handle) ID() string { return h.id }

// Job returns the underlying job.
func (h *Handle) Job() Job { return h.job }

// Done is closed once the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the job's result. It is nil until Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) complete(err error) {
	h.err = err
	close(h.done)
}

// Runtime is a bounded job queue served by a worker pool.
type Runtime struct {
	workers   int
	jobs      chan *Handle
	history   *history
	logger    *zap.Logger
	onFailure FailureHandler

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger for job failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFailureHandler sets a callback for failed jobs. It runs on the worker goroutine.
func WithFailureHandler(fn FailureHandler) Option {
	return func(r *Runtime) { r.onFailure = fn }
}

// New creates a runtime with the given number of workers, buffer capacity and
// size of the handle history used by Lookup.
func New(workers, buffer, historySize int, opts ...Option) *Runtime {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	r := &Runtime{
		workers: workers,
		jobs:    make(chan *Handle, buffer),
		history: newHistory(historySize),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the workers. Jobs run with a context derived from ctx.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
	r.logger.Debug("job runtime started", zap.Int("workers", r.workers), zap.Int("buffer", cap(r.jobs)))
}

// Enqueue hands job to the pool without blocking.
func (r *Runtime) Enqueue(job Job) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if len(r.jobs) >= cap(r.jobs) {
		return nil, ErrQueueFull
	}
	if _, ok := r.history.get(job.ID()); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID())
	}

	h := newHandle(job)
	if e, ok := job.(enqueuer); ok {
		e.Enqueued()
	}
	// Only Enqueue sends, under mu, so the capacity check above guarantees room.
	r.jobs <- h
	r.history.add(h)
	return h, nil
}

// Lookup returns a recently enqueued handle.
func (r *Runtime) Lookup(id string) (*Handle, bool) {
	return r.history.get(id)
}

// Pending returns the number of jobs waiting for a worker.
func (r *Runtime) Pending() int {
	return len(r.jobs)
}

// Stop refuses new jobs and waits for queued ones to finish. If ctx ends first,
// running jobs are cancelled and ctx's error is returned. When the runtime was
// never started, queued jobs are aborted and their handles complete with ErrClosed.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	started := r.started
	r.mu.Unlock()

	if !started {
		for h := range r.jobs {
			if a, ok := h.job.(aborter); ok {
				a.Abort(ctx, ErrClosed)
			}
			h.complete(ErrClosed)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

func (r *Runtime) worker(ctx context.Context) {
	defer r.wg.Done()
	for h := range r.jobs {
		r.run(ctx, h)
	}
}

func (r *Runtime) run(ctx context.Context, h *Handle) {
	var err error
	panicked := false
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", h.id, rec)
			panicked = true
		}
		h.complete(err)
		if err != nil {
			if fl, ok := h.job.(failureLogger); ok && fl.LogsFailures() && !panicked {
				r.logger.Debug("job failed", zap.String("job_id", h.id), zap.Error(err))
			} else {
				r.logger.Error("job failed", zap.String("job_id", h.id), zap.Error(err))
			}
			if r.onFailure != nil {
				r.onFailure(h.id, err)
			}
		}
	}()
	err = h.job.Run(ctx)
}
