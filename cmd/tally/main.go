// Package main is the Tally CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tally/internal/artifact"
	"github.com/hyperjump/tally/internal/cli"
	"github.com/hyperjump/tally/internal/config"
	"github.com/hyperjump/tally/internal/export"
	"github.com/hyperjump/tally/internal/exporter"
	"github.com/hyperjump/tally/internal/metrics"
	"github.com/hyperjump/tally/internal/models"
	"github.com/hyperjump/tally/internal/queue"
	"github.com/hyperjump/tally/internal/schedule"
	"github.com/hyperjump/tally/internal/server"
	"github.com/hyperjump/tally/internal/storage"
	"github.com/hyperjump/tally/internal/xlsx"
	"github.com/hyperjump/tally/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/tally/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and no file exists there,
// config.yaml in the current directory is tried, and failing that built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "export":
		runExport()
	case "preview":
		runPreview()
	case "inspect":
		runInspect()
	case "users":
		runUsers()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tally version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (job stages, requests)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components.Runtime.Start(ctx)

	if cfg.Schedule.Cron != "" {
		opts := exporter.Options{Mode: cfg.Schedule.Mode, Target: cfg.Schedule.Target}
		sched, err := schedule.New(cfg.Schedule.Cron, func(ctx context.Context) (string, error) {
			h, err := components.Exports.Trigger(ctx, opts)
			if err != nil {
				return "", err
			}
			return h.ID(), nil
		}, schedule.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to configure schedule", zap.Error(err))
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	srvOpts := []server.Option{server.WithPending(components.Runtime.Pending)}
	if components.Metrics != nil {
		srvOpts = append(srvOpts, server.WithMetrics(components.Metrics.Handler()))
	}
	srv := server.NewServer(components.Exports, components.Storage, components.Artifacts, cfg, logger, srvOpts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := components.Runtime.Stop(shutdownCtx); err != nil {
		logger.Warn("export jobs did not drain", zap.Error(err))
	}
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument, so "tally inspect out.xlsx -output json" would
// otherwise leave -output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

// exportAccepted is the shape of the POST /api/v1/exports response.
type exportAccepted struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	State  models.JobState `json:"state"`
	Target string          `json:"target"`
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run the export in this process)")
	mode := fs.String("mode", "", "layout: single (one sheet) or per_record (one sheet per user); default from config")
	target := fs.String("target", "", "artifact name; default from config")
	wait := fs.Bool("wait", false, "wait for the export to finish (server mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)
	opts := exporter.Options{Mode: *mode, Target: *target}

	if *serverURL != "" {
		accepted, err := exportViaHTTP(*serverURL, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		if !*wait {
			fmt.Printf("%s (job %s, target %s)\n", accepted.Status, accepted.ID, accepted.Target)
			return
		}
		st, err := waitViaHTTP(context.Background(), *serverURL, accepted.ID, 200*time.Millisecond)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export status failed: %v\n", err)
			os.Exit(1)
		}
		writeStatusAndExit(st, format)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	components.Runtime.Start(ctx)
	h, err := components.Exports.Trigger(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "Exporting...")
	_ = h.Wait(ctx)
	_ = components.Runtime.Stop(ctx)

	st, _ := components.Exports.Status(h.ID())
	writeStatusAndExit(st, format)
}

func writeStatusAndExit(st models.JobStatus, format cli.OutputFormat) {
	if err := cli.WriteJobStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if st.State == models.JobFailed {
		os.Exit(1)
	}
}

func exportViaHTTP(serverURL string, opts exporter.Options) (*exportAccepted, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/exports", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out exportAccepted
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func jobStatusViaHTTP(serverURL, id string) (*models.JobStatus, error) {
	var st models.JobStatus
	if err := getJSON(serverURL+"/api/v1/exports/"+id, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// waitViaHTTP polls the job until it reaches a terminal state or ctx is done.
func waitViaHTTP(ctx context.Context, serverURL, id string, interval time.Duration) (models.JobStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := jobStatusViaHTTP(serverURL, id)
		if err != nil {
			return models.JobStatus{}, err
		}
		if st.State.Terminal() {
			return *st, nil
		}
		select {
		case <-ctx.Done():
			return *st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runPreview() {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	mode := fs.String("mode", "", "layout: single or per_record; default from config")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	sheets, err := components.Exports.Preview(context.Background(), exporter.Options{Mode: *mode})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Preview failed: %v\n", describeExportError(err))
		os.Exit(1)
	}
	if err := cli.WriteWorksheets(os.Stdout, sheets, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// describeExportError adds a hint for pipeline errors a user can act on.
func describeExportError(err error) error {
	var (
		empty    *export.EmptyExportError
		schema   *export.SchemaMismatchError
		rowError *export.RowMappingError
	)
	switch {
	case errors.As(err, &empty):
		return fmt.Errorf("%w (add users with \"tally users add\")", err)
	case errors.As(err, &schema):
		return fmt.Errorf("%w (add a label for %q under export.labels)", err, schema.Key)
	case errors.As(err, &rowError):
		return fmt.Errorf("%w (record %d)", err, rowError.Row+1)
	}
	return err
}

func runInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseFormat(*outputFormat)

	if fs.NArg() < 1 {
		fmt.Println("Usage: tally inspect [flags] <file.xlsx>")
		os.Exit(1)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read workbook: %v\n", err)
		os.Exit(1)
	}
	sheets, err := xlsx.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode workbook: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSheets(os.Stdout, sheets, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runUsers() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tally users <add|list|delete> [flags]")
		fmt.Println("  tally users add --name NAME --email EMAIL   Add a user")
		fmt.Println("  tally users list                             List users")
		fmt.Println("  tally users delete <id>                      Delete a user")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	name := fs.String("name", "", "user name (add)")
	email := fs.String("email", "", "user email (add)")
	id := fs.Int64("id", 0, "explicit user id (add; default auto-assigned)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	format := parseFormat(*outputFormat)

	var client userClient
	if *serverURL != "" {
		client = &httpUserClient{baseURL: *serverURL}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		client = &storeUserClient{store: store}
	}

	ctx := context.Background()
	switch sub {
	case "add":
		if *name == "" || *email == "" {
			fmt.Println("Usage: tally users add --name NAME --email EMAIL [--id ID]")
			os.Exit(1)
		}
		u, err := client.Add(ctx, models.UserInput{ID: *id, Name: *name, Email: *email})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("User added: %d\n", u.ID)
	case "list":
		users, err := client.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteUsers(os.Stdout, users, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if fs.NArg() < 1 {
			fmt.Println("Usage: tally users delete <id>")
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid user id %q\n", fs.Arg(0))
			os.Exit(1)
		}
		if err := client.Delete(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("User deleted: %d\n", userID)
	default:
		fmt.Printf("Unknown users subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DefaultTarget string `json:"default_target,omitempty"`
	DefaultMode   string `json:"default_mode,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	DatabasePath  string `json:"database_path,omitempty"`
	ArtifactDir   string `json:"artifact_dir,omitempty"`
	Schedule      string `json:"schedule,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Users          int64                 `json:"users"`
	PendingJobs    *int                  `json:"pending_jobs,omitempty"`
	Artifacts      int                   `json:"artifacts"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	jobID := fs.String("job", "", "show the status of one export job (server mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	if *jobID != "" {
		if *serverURL == "" {
			fmt.Fprintln(os.Stderr, "--job requires --server; job history lives in the server process")
			os.Exit(1)
		}
		st, err := jobStatusViaHTTP(*serverURL, *jobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		writeStatusAndExit(*st, format)
		return
	}

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		st, err := directStatus(context.Background(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *st
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	writeStatusText(os.Stdout, &status)
}

func directStatus(ctx context.Context, cfg *config.Config) (*statusResponse, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	users, err := store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users failed: %w", err)
	}
	status := &statusResponse{
		Users: users,
		Config: &statusConfigResponse{
			DefaultTarget: cfg.Export.DefaultTarget,
			DefaultMode:   cfg.Export.DefaultMode,
			Workers:       cfg.Queue.Workers,
			DatabasePath:  cfg.Storage.DatabasePath,
			ArtifactDir:   cfg.Storage.ArtifactDir,
			Schedule:      cfg.Schedule.Cron,
		},
	}
	if artifacts, err := artifact.NewDiskStore(cfg.Storage.ArtifactDir); err == nil {
		if list, err := artifacts.List(); err == nil {
			status.Artifacts = len(list)
		}
	}
	if diskBytes, err := artifact.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.ArtifactDir); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "users:              %d   # stored user records\n", status.Users)
	fmt.Fprintf(w, "artifacts:          %d   # workbooks in the artifact directory\n", status.Artifacts)
	if status.PendingJobs != nil {
		fmt.Fprintf(w, "pending_jobs:       %d   # exports waiting for a worker\n", *status.PendingJobs)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + artifacts on disk\n", *status.DiskUsageBytes)
	}
	if status.Config == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "default_target:     %s\n", status.Config.DefaultTarget)
	fmt.Fprintf(w, "default_mode:       %s\n", status.Config.DefaultMode)
	if status.Config.Workers > 0 {
		fmt.Fprintf(w, "workers:            %d\n", status.Config.Workers)
	}
	if status.Config.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
	}
	if status.Config.ArtifactDir != "" {
		fmt.Fprintf(w, "artifact_dir:       %s\n", status.Config.ArtifactDir)
	}
	if status.Config.Schedule != "" {
		fmt.Fprintf(w, "schedule:           %s\n", status.Config.Schedule)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Artifacts *artifact.DiskStore
	Runtime   *queue.Runtime
	Metrics   *metrics.Collector
	Exports   *exporter.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	artifacts, err := artifact.NewDiskStore(cfg.Storage.ArtifactDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	pipeline, err := exporter.BuildPipeline(cfg.Export, store, artifacts)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid export config: %w", err)
	}

	runtime := queue.New(cfg.Queue.Workers, cfg.Queue.Buffer, cfg.Queue.History, queue.WithLogger(logger))

	exportOpts := []exporter.Option{exporter.WithLogger(logger), exporter.WithHooks(loggingHooks(logger))}
	var collector *metrics.Collector
	if cfg.Metrics.EnabledOrDefault() {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil, runtime.Pending)
		exportOpts = append(exportOpts, exporter.WithRecorder(collector))
	}

	return &Components{
		Storage:   store,
		Artifacts: artifacts,
		Runtime:   runtime,
		Metrics:   collector,
		Exports:   exporter.New(store, pipeline, runtime, cfg.Export, exportOpts...),
	}, nil
}

// loggingHooks traces job stages at debug level.
func loggingHooks(logger *zap.Logger) export.Hooks {
	return export.Hooks{
		BeforeWriting: func(_ context.Context, e export.ExportEvent) {
			logger.Debug("writing workbook", zap.String("job_id", e.JobID), zap.String("target", e.Target))
		},
		BeforeSheet: func(_ context.Context, e export.SheetEvent) {
			logger.Debug("sheet started", zap.String("job_id", e.JobID), zap.Int("index", e.Index), zap.String("title", e.Sheet.Title))
		},
		AfterSheet: func(_ context.Context, e export.SheetEvent) {
			logger.Debug("sheet finished", zap.String("job_id", e.JobID), zap.Int("index", e.Index), zap.Int("rows", len(e.Sheet.Rows)))
		},
	}
}

func printUsage() {
	fmt.Println(`tally - Queued spreadsheet export of user records

Usage:
  tally server [flags]              Start the HTTP server and export workers
  tally export [flags]              Export all users to an XLSX workbook
  tally preview [flags]             Show the sheets an export would write
  tally inspect [flags] <file>      Print the sheets of an XLSX workbook
  tally users <add|list|delete>     Manage user records
  tally status [flags]              Show storage/queue status or one job's status
  tally version                     Show version
  tally help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tally/config.yaml)
  --debug            Enable debug logging

Export Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to export in-process.
  --mode string      single or per_record (default from config)
  --target string    Artifact name (default from config)
  --wait             Wait for the job to finish and print its status
  --output string    Output format: text or json (default: text)

Preview Flags:
  --config string    Config file path
  --mode string      single or per_record (default from config)
  --output string    Output format: text or json (default: text)

Users Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --name, --email    User fields (add)
  --id int           Explicit user id (add)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --job string       Show one export job
  --output string    Output format: text or json (default: text)

Examples:
  tally server
  tally users add --name "Delta Botsford" --email delta.botsford@example.org
  tally export
  tally export --mode per_record --target per-user.xlsx --wait
  tally export --server "" --output json
  tally preview --mode single
  tally inspect /usr/local/var/tally/data/exports/users.xlsx
  tally status --job 1f0c...`)
}
