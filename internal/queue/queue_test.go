package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJob struct {
	id       string
	run      func(ctx context.Context) error
	runs     atomic.Int32
	enqueued atomic.Bool
}

func (f *fakeJob) ID() string { return f.id }

func (f *fakeJob) Enqueued() { f.enqueued.Store(true) }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs.Add(1)
	if f.run != nil {
		return f.run(ctx)
	}
	return nil
}

// selfLoggingJob logs its own failures.
type selfLoggingJob struct {
	fakeJob
}

func (j *selfLoggingJob) LogsFailures() bool { return true }

type abortableJob struct {
	fakeJob
	mu      sync.Mutex
	aborted error
}

func (j *abortableJob) Abort(_ context.Context, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.aborted = err
}

func waitFor(t *testing.T, h *Handle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("job %s did not finish", h.ID())
	}
	return err
}

func TestRuntime_runsJobs(t *testing.T) {
	r := New(2, 8, 16)
	r.Start(context.Background())
	defer r.Stop(context.Background())

	jobs := make([]*fakeJob, 5)
	handles := make([]*Handle, 5)
	for i := range jobs {
		jobs[i] = &fakeJob{id: fmt.Sprintf("job-%d", i)}
		h, err := r.Enqueue(jobs[i])
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		handles[i] = h
	}
	for i, h := range handles {
		if err := waitFor(t, h); err != nil {
			t.Errorf("job %d: %v", i, err)
		}
		if !jobs[i].enqueued.Load() {
			t.Errorf("job %d: Enqueued not called", i)
		}
		if n := jobs[i].runs.Load(); n != 1 {
			t.Errorf("job %d ran %d times", i, n)
		}
	}
}

func TestRuntime_failureHandler(t *testing.T) {
	var mu sync.Mutex
	failed := map[string]error{}
	r := New(1, 4, 4, WithFailureHandler(func(id string, err error) {
		mu.Lock()
		failed[id] = err
		mu.Unlock()
	}))
	r.Start(context.Background())
	defer r.Stop(context.Background())

	boom := errors.New("boom")
	h1, _ := r.Enqueue(&fakeJob{id: "err", run: func(context.Context) error { return boom }})
	h2, _ := r.Enqueue(&fakeJob{id: "panic", run: func(context.Context) error { panic("kaput") }})

	if err := waitFor(t, h1); !errors.Is(err, boom) {
		t.Errorf("h1: got %v", err)
	}
	if err := waitFor(t, h2); err == nil {
		t.Error("h2: expected panic to become an error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 2 {
		t.Errorf("failure handler saw %d jobs, want 2", len(failed))
	}
}

func TestRuntime_queueFull(t *testing.T) {
	r := New(1, 1, 4)
	// Not started: nothing drains the buffer.
	if _, err := r.Enqueue(&fakeJob{id: "a"}); err != nil {
		t.Fatal(err)
	}
	if r.Pending() != 1 {
		t.Errorf("Pending = %d", r.Pending())
	}
	b := &fakeJob{id: "b"}
	if _, err := r.Enqueue(b); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if b.enqueued.Load() {
		t.Error("rejected job must not be marked enqueued")
	}
}

func TestRuntime_duplicateID(t *testing.T) {
	r := New(1, 4, 4)
	if _, err := r.Enqueue(&fakeJob{id: "same"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Enqueue(&fakeJob{id: "same"}); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestRuntime_stopDrainsAndCloses(t *testing.T) {
	r := New(1, 4, 4)
	release := make(chan struct{})
	slow := &fakeJob{id: "slow", run: func(context.Context) error {
		<-release
		return nil
	}}
	next := &fakeJob{id: "next"}
	r.Start(context.Background())
	h1, _ := r.Enqueue(slow)
	h2, _ := r.Enqueue(next)

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop(context.Background()) }()

	// Stop is waiting on the slow job; new work is refused.
	time.Sleep(20 * time.Millisecond)
	if _, err := r.Enqueue(&fakeJob{id: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	close(release)

	if err := <-stopped; err != nil {
		t.Errorf("Stop: %v", err)
	}
	if waitFor(t, h1) != nil || waitFor(t, h2) != nil {
		t.Error("queued jobs should complete")
	}
	if next.runs.Load() != 1 {
		t.Error("queued job was not drained")
	}
}

func TestRuntime_stopTimeoutCancelsJobs(t *testing.T) {
	r := New(1, 1, 4)
	r.Start(context.Background())
	h, _ := r.Enqueue(&fakeJob{id: "blocked", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop: got %v", err)
	}
	if err := waitFor(t, h); !errors.Is(err, context.Canceled) {
		t.Errorf("job: got %v", err)
	}
}

func TestRuntime_stopBeforeStart(t *testing.T) {
	r := New(1, 2, 4)
	job := &fakeJob{id: "never"}
	h, _ := r.Enqueue(job)
	if err := r.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := waitFor(t, h); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
	if job.runs.Load() != 0 {
		t.Error("job must not run")
	}
}

func TestRuntime_stopBeforeStartAbortsJobs(t *testing.T) {
	r := New(1, 2, 4)
	job := &abortableJob{fakeJob: fakeJob{id: "abandoned"}}
	h, err := r.Enqueue(job)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := waitFor(t, h); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	if !errors.Is(job.aborted, ErrClosed) {
		t.Errorf("Abort got %v, want ErrClosed", job.aborted)
	}
	if job.runs.Load() != 0 {
		t.Error("job must not run")
	}
}

func TestRuntime_failureLogLevel(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		job       Job
		wantLevel zapcore.Level
	}{
		{"plain job", &fakeJob{id: "plain", run: func(context.Context) error { return boom }}, zapcore.ErrorLevel},
		{"self-logging job", &selfLoggingJob{fakeJob{id: "self", run: func(context.Context) error { return boom }}}, zapcore.DebugLevel},
		{"self-logging panic", &selfLoggingJob{fakeJob{id: "panic", run: func(context.Context) error { panic("kaput") }}}, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			r := New(1, 2, 4, WithLogger(zap.New(core)))
			r.Start(context.Background())
			h, err := r.Enqueue(tt.job)
			if err != nil {
				t.Fatal(err)
			}
			if err := waitFor(t, h); err == nil {
				t.Fatal("expected job error")
			}
			if err := r.Stop(context.Background()); err != nil {
				t.Fatal(err)
			}

			failed := logs.FilterMessage("job failed").All()
			if len(failed) != 1 {
				t.Fatalf("logged %d failure entries, want 1", len(failed))
			}
			if failed[0].Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", failed[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestRuntime_lookup(t *testing.T) {
	r := New(1, 4, 2)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := r.Enqueue(&fakeJob{id: id}); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := r.Lookup("a"); ok {
		t.Error("expected a to be evicted from history")
	}
	h, ok := r.Lookup("c")
	if !ok || h.ID() != "c" {
		t.Errorf("Lookup(c) = %v, %v", h, ok)
	}
	if h.Err() != nil {
		t.Error("unfinished handle should report nil Err")
	}
}

func TestHistory_evictsLeastRecentlyUsed(t *testing.T) {
	c := newHistory(2)
	a, b, d := newHandle(&fakeJob{id: "a"}), newHandle(&fakeJob{id: "b"}), newHandle(&fakeJob{id: "d"})
	c.add(a)
	c.add(b)
	c.get("a") // a is now most recent
	c.add(d)   // evicts b
	if _, ok := c.get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.len() != 2 {
		t.Errorf("len = %d", c.len())
	}
}
