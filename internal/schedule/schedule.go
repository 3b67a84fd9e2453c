// Package schedule triggers exports on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TriggerFunc starts one export and returns its job ID.
type TriggerFunc func(ctx context.Context) (string, error)

// Scheduler calls a trigger on a standard five-field cron expression
// (descriptors such as "@daily" and "@every 1h" are accepted too).
type Scheduler struct {
	spec    string
	trigger TriggerFunc
	cron    *cron.Cron
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New validates spec and returns a stopped scheduler.
func New(spec string, trigger TriggerFunc, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		spec:    spec,
		trigger: trigger,
		cron:    cron.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.fire(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule export: %w", err)
	}
	return s, nil
}

// Start begins firing. The scheduler stops on its own when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("export scheduler started", zap.String("schedule", s.spec))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the schedule and waits for an in-flight trigger to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("export scheduler stopped")
}

// Running reports whether the schedule is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next firing time, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// fire runs the trigger once. Trigger errors are logged; the schedule keeps going.
func (s *Scheduler) fire(ctx context.Context) {
	id, err := s.trigger(ctx)
	if err != nil {
		s.logger.Error("scheduled export failed to start", zap.Error(err))
		return
	}
	s.logger.Info("scheduled export enqueued", zap.String("job_id", id))
}
