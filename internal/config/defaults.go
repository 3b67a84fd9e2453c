package config

import "runtime"

// Export defaults.
const (
	DefaultNameSuffix     = " {prepared}"
	DefaultReferenceEmail = "delta.botsford@example.org"
	DefaultDerivedLabel   = "Failed Users Count"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tally/data/db/users.db"
	}
	if cfg.Storage.ArtifactDir == "" {
		cfg.Storage.ArtifactDir = "/usr/local/var/tally/data/exports"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = runtime.NumCPU()
	}
	if cfg.Queue.Buffer == 0 {
		cfg.Queue.Buffer = 64
	}
	if cfg.Queue.History == 0 {
		cfg.Queue.History = 256
	}
	if cfg.Export.DefaultTarget == "" {
		cfg.Export.DefaultTarget = "users.xlsx"
	}
	if cfg.Export.DefaultMode == "" {
		cfg.Export.DefaultMode = "single"
	}
	if cfg.Export.SheetTitle == "" {
		cfg.Export.SheetTitle = "Users"
	}
	if cfg.Export.ReferenceEmail == "" {
		cfg.Export.ReferenceEmail = DefaultReferenceEmail
	}
	if cfg.Export.DerivedLabel == "" {
		cfg.Export.DerivedLabel = DefaultDerivedLabel
	}
	if cfg.Export.Labels == nil {
		cfg.Export.Labels = map[string]string{"id": "id", "name": "name", "email": "email"}
	}
	if cfg.Export.ColumnWidths == nil {
		cfg.Export.ColumnWidths = map[string]float64{"C": 10}
	}
	if cfg.Export.WrapColumns == nil {
		cfg.Export.WrapColumns = []string{"C"}
	}
	if cfg.Export.MinWidth == 0 {
		cfg.Export.MinWidth = 6
	}
	if cfg.Export.MaxWidth == 0 {
		cfg.Export.MaxWidth = 60
	}
	if cfg.Schedule.Cron != "" && cfg.Schedule.Target == "" {
		cfg.Schedule.Target = "scheduled-users.xlsx"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "tally"
	}
}
