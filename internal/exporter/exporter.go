// Package exporter wires the record store, export pipeline and job runtime together.
package exporter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tally/internal/config"
	"github.com/hyperjump/tally/internal/export"
	"github.com/hyperjump/tally/internal/models"
	"github.com/hyperjump/tally/internal/queue"
	"github.com/hyperjump/tally/internal/storage"
	"github.com/hyperjump/tally/internal/xlsx"
)

// Options selects the layout and artifact name of one export. Zero values fall back
// to the configured defaults.
type Options struct {
	Mode   string `json:"mode"`
	Target string `json:"target"`
}

// Service starts exports of the stored users.
type Service struct {
	store    storage.Storage
	pipeline *export.Pipeline
	runtime  *queue.Runtime
	cfg      config.ExportConfig
	logger   *zap.Logger
	recorder export.Recorder
	hooks    export.Hooks
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger passed to every job.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the recorder passed to every job.
func WithRecorder(r export.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithHooks sets lifecycle hooks for every job.
func WithHooks(h export.Hooks) Option {
	return func(s *Service) { s.hooks = h }
}

// BuildPipeline assembles the export pipeline described by cfg on top of store.
func BuildPipeline(cfg config.ExportConfig, store storage.Storage, artifacts export.ArtifactStore) (*export.Pipeline, error) {
	var transforms []export.FieldTransform
	if suffix := cfg.NameSuffixOrDefault(); suffix != "" {
		transforms = append(transforms, export.AppendSuffix(models.FieldName, suffix))
	}
	labels := models.LabelTable(cfg.Labels)
	if len(labels) == 0 {
		labels = models.DefaultUserLabels()
	}
	var derived []export.DerivedColumn
	if cfg.DerivedLabel != "" {
		derived = append(derived, export.FlagColumn(cfg.DerivedLabel, cfg.ReferenceEmail))
	}
	styler, err := export.NewStyler(cfg.ColumnWidths, cfg.WrapColumns, cfg.MinWidth, cfg.MaxWidth)
	if err != nil {
		return nil, err
	}
	return &export.Pipeline{
		Assembler: export.NewAssembler(store, labels, export.NewPreparer(transforms...), cfg.SheetTitle, derived...),
		Styler:    styler,
		Encoder:   xlsx.NewEncoder(),
		Artifacts: artifacts,
	}, nil
}

// New creates a service. cfg supplies the default mode and target.
func New(store storage.Storage, pipeline *export.Pipeline, runtime *queue.Runtime, cfg config.ExportConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		runtime:  runtime,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request resolves opts against the defaults and loads the current records.
func (s *Service) Request(ctx context.Context, opts Options) (models.ExportRequest, error) {
	req := models.ExportRequest{
		Mode:   models.ExportMode(firstNonEmpty(opts.Mode, s.cfg.DefaultMode)),
		Target: firstNonEmpty(opts.Target, s.cfg.DefaultTarget),
	}
	if err := req.Validate(); err != nil {
		return req, &export.ConfigurationError{Msg: err.Error()}
	}
	users, err := s.store.FetchAll(ctx)
	if err != nil {
		return req, fmt.Errorf("failed to load users: %w", err)
	}
	req.Records = models.UserFields(users)
	return req, nil
}

// Trigger snapshots the stored users into an export request and enqueues a job for it.
// It returns as soon as the job is queued; the job's outcome is reported through its
// handle and Status.
func (s *Service) Trigger(ctx context.Context, opts Options) (*queue.Handle, error) {
	req, err := s.Request(ctx, opts)
	if err != nil {
		return nil, err
	}
	job := export.NewJob(s.pipeline, req,
		export.WithHooks(s.hooks),
		export.WithLogger(s.logger),
		export.WithRecorder(s.recorder),
	)
	h, err := s.runtime.Enqueue(job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}
	s.logger.Info("export enqueued",
		zap.String("job_id", job.ID()),
		zap.String("mode", string(req.Mode)),
		zap.String("target", req.Target),
		zap.Int("records", len(req.Records)),
	)
	return h, nil
}

// Status returns the status of a recently triggered job.
func (s *Service) Status(id string) (models.JobStatus, bool) {
	h, ok := s.runtime.Lookup(id)
	if !ok {
		return models.JobStatus{}, false
	}
	job, ok := h.Job().(*export.Job)
	if !ok {
		return models.JobStatus{}, false
	}
	return job.Status(), true
}

// Preview assembles and styles the worksheets an export would produce, without
// encoding or storing them.
func (s *Service) Preview(ctx context.Context, opts Options) ([]*models.Worksheet, error) {
	req, err := s.Request(ctx, opts)
	if err != nil {
		return nil, err
	}
	sheets, err := s.pipeline.Assembler.Assemble(ctx, &req)
	if err != nil {
		return nil, err
	}
	for _, ws := range sheets {
		s.pipeline.Styler.Apply(ws)
	}
	return sheets, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
