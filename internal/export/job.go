package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tally/internal/models"
)

// Encoder serializes styled worksheets into a binary workbook.
type Encoder interface {
	Encode(sheets []*models.Worksheet) ([]byte, error)
}

// ArtifactStore receives finished workbooks. A Store call is a single deposit: either the
// whole artifact is kept under name or nothing is.
type ArtifactStore interface {
	Store(ctx context.Context, name string, data []byte) error
}

// Recorder observes finished jobs, e.g. for metrics.
type Recorder interface {
	ObserveExport(mode models.ExportMode, state models.JobState, elapsed time.Duration, sheets, rows int)
}

// Pipeline bundles the collaborators shared by every job.
type Pipeline struct {
	Assembler *Assembler
	Styler    *Styler
	Encoder   Encoder
	Artifacts ArtifactStore
}

// ExportEvent is passed to job-level hooks.
type ExportEvent struct {
	JobID   string
	Mode    models.ExportMode
	Target  string
	Records int
}

// SheetEvent is passed to sheet-level hooks. Sheet is empty in BeforeSheet apart from its
// title, and populated and styled in AfterSheet.
type SheetEvent struct {
	JobID string
	Index int
	Sheet *models.Worksheet
}

// Hooks are extension points invoked at fixed stages of a job. A nil hook is a no-op.
// Hooks cannot change the job's course; a panicking hook fails the job.
type Hooks struct {
	BeforeExport  func(ctx context.Context, e ExportEvent)
	BeforeWriting func(ctx context.Context, e ExportEvent)
	BeforeSheet   func(ctx context.Context, e SheetEvent)
	AfterSheet    func(ctx context.Context, e SheetEvent)
	OnFailure     func(ctx context.Context, e ExportEvent, err error)
}

// Job is one asynchronous export. It runs at most once.
type Job struct {
	pipeline *Pipeline
	req      models.ExportRequest
	hooks    Hooks
	logger   *zap.Logger
	logged   bool
	recorder Recorder

	mu     sync.Mutex
	status models.JobStatus
	err    error
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithHooks sets the lifecycle hooks.
func WithHooks(h Hooks) JobOption {
	return func(j *Job) { j.hooks = h }
}

// WithLogger sets a logger for stage and failure events.
func WithLogger(l *zap.Logger) JobOption {
	return func(j *Job) {
		if l != nil {
			j.logger = l
			j.logged = true
		}
	}
}

// WithRecorder sets a recorder notified when the job finishes.
func WithRecorder(r Recorder) JobOption {
	return func(j *Job) { j.recorder = r }
}

// WithID overrides the generated job ID.
func WithID(id string) JobOption {
	return func(j *Job) { j.status.ID = id }
}

// NewJob creates a job in the CREATED state. The request is copied; its records are not.
func NewJob(p *Pipeline, req models.ExportRequest, opts ...JobOption) *Job {
	j := &Job{
		pipeline: p,
		req:      req,
		logger:   zap.NewNop(),
		status: models.JobStatus{
			ID:        uuid.New().String(),
			State:     models.JobCreated,
			Mode:      req.Mode,
			Target:    req.Target,
			Records:   len(req.Records),
			CreatedAt: time.Now(),
		},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ID returns the job ID.
func (j *Job) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.ID
}

// Status returns a snapshot of the job's progress.
func (j *Job) Status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the error that failed the job, or nil.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Enqueued moves the job from CREATED to ENQUEUED. The job runtime calls it on hand-off.
func (j *Job) Enqueued() {
	j.transition(models.JobCreated, models.JobEnqueued)
}

// LogsFailures reports whether the job logs its own failures at error level.
func (j *Job) LogsFailures() bool {
	return j.logged
}

// Abort fails a job that was enqueued but will never run, e.g. because the runtime
// shut down first. OnFailure fires with err. Jobs in any other state are left alone.
func (j *Job) Abort(ctx context.Context, err error) {
	if !j.transition(models.JobEnqueued, models.JobFailed) {
		return
	}
	j.finish(ctx, j.event(), time.Now(), 0, 0, 0, err)
}

func (j *Job) event() ExportEvent {
	return ExportEvent{
		JobID:   j.ID(),
		Mode:    j.req.Mode,
		Target:  j.req.Target,
		Records: len(j.req.Records),
	}
}

func (j *Job) transition(from, to models.JobState) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State != from {
		return false
	}
	j.status.State = to
	if to == models.JobRunning {
		now := time.Now()
		j.status.StartedAt = &now
	}
	return true
}

// Run executes the pipeline: before-export, sheet planning, before-writing, then for each
// sheet before-sheet, populate, style, after-sheet; finally encode and store. Any error
// moves the job to FAILED, calls OnFailure and leaves storage untouched.
func (j *Job) Run(ctx context.Context) (err error) {
	if !j.transition(models.JobEnqueued, models.JobRunning) {
		return fmt.Errorf("job %s is %s, not %s", j.ID(), j.Status().State, models.JobEnqueued)
	}
	start := time.Now()
	event := j.event()
	var sheets, rows, size int
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export job panicked: %v", r)
		}
		j.finish(ctx, event, start, sheets, rows, size, err)
	}()

	j.logger.Debug("export started",
		zap.String("job_id", event.JobID),
		zap.String("mode", string(event.Mode)),
		zap.String("target", event.Target),
		zap.Int("records", event.Records),
	)
	if h := j.hooks.BeforeExport; h != nil {
		h(ctx, event)
	}

	sources, err := j.pipeline.Assembler.Sources(&j.req)
	if err != nil {
		return err
	}

	if h := j.hooks.BeforeWriting; h != nil {
		h(ctx, event)
	}

	built := make([]*models.Worksheet, 0, len(sources))
	for i, src := range sources {
		ws := &models.Worksheet{Title: src.Title()}
		sheetEvent := SheetEvent{JobID: event.JobID, Index: i, Sheet: ws}
		if h := j.hooks.BeforeSheet; h != nil {
			h(ctx, sheetEvent)
		}
		if err := src.Populate(ctx, ws); err != nil {
			return err
		}
		j.pipeline.Styler.Apply(ws)
		if h := j.hooks.AfterSheet; h != nil {
			h(ctx, sheetEvent)
		}
		built = append(built, ws)
		rows += len(ws.Rows)
	}
	sheets = len(built)

	data, err := j.pipeline.Encoder.Encode(built)
	if err != nil {
		return &WriteError{Op: "encode", Target: j.req.Target, Err: err}
	}
	if err := j.pipeline.Artifacts.Store(ctx, j.req.Target, data); err != nil {
		return &WriteError{Op: "store", Target: j.req.Target, Err: err}
	}
	size = len(data)
	return nil
}

func (j *Job) finish(ctx context.Context, event ExportEvent, start time.Time, sheets, rows, size int, err error) {
	now := time.Now()
	state := models.JobCompleted
	if err != nil {
		state = models.JobFailed
	}

	j.mu.Lock()
	j.status.State = state
	j.status.FinishedAt = &now
	j.status.Sheets = sheets
	j.status.Rows = rows
	j.status.Bytes = size
	if err != nil {
		j.err = err
		j.status.Error = err.Error()
	}
	j.mu.Unlock()

	if j.recorder != nil {
		j.recorder.ObserveExport(event.Mode, state, now.Sub(start), sheets, rows)
	}
	if err == nil {
		j.logger.Info("export completed",
			zap.String("job_id", event.JobID),
			zap.String("target", event.Target),
			zap.Int("sheets", sheets),
			zap.Int("rows", rows),
			zap.Int("bytes", size),
			zap.Duration("elapsed", now.Sub(start)),
		)
		return
	}
	j.logger.Error("export failed",
		zap.String("job_id", event.JobID),
		zap.String("target", event.Target),
		zap.Error(err),
	)
	if h := j.hooks.OnFailure; h != nil {
		h(ctx, event, err)
	}
}
