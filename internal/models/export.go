package models

import (
	"fmt"
	"strings"
	"time"
)

// ExportMode selects how records are laid out in the workbook.
type ExportMode string

const (
	// ModeSingle writes every record as a row of one worksheet.
	ModeSingle ExportMode = "single"
	// ModePerRecord writes one worksheet per record.
	ModePerRecord ExportMode = "per_record"
)

// ParseExportMode parses a mode name; the empty string yields ModeSingle.
func ParseExportMode(s string) (ExportMode, error) {
	switch ExportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModePerRecord, "per-record", "sheets":
		return ModePerRecord, nil
	default:
		return "", fmt.Errorf("unknown export mode %q (want %q or %q)", s, ModeSingle, ModePerRecord)
	}
}

// ExportRequest is one unit of export work: the records, the layout mode and the artifact name.
type ExportRequest struct {
	Records []Fields   `json:"records"`
	Mode    ExportMode `json:"mode"`
	Target  string     `json:"target"`
}

// Validate checks the target name and normalizes the mode.
// An empty record set is not rejected here; the pipeline reports it as an empty export.
func (r *ExportRequest) Validate() error {
	if strings.TrimSpace(r.Target) == "" {
		return fmt.Errorf("target name cannot be empty")
	}
	mode, err := ParseExportMode(string(r.Mode))
	if err != nil {
		return err
	}
	r.Mode = mode
	return nil
}

// ColumnFormat holds the formatting directives for one worksheet column.
type ColumnFormat struct {
	Width    float64 `json:"width"`
	Explicit bool    `json:"explicit"` // width came from an override, not auto-size
	Bold     bool    `json:"bold"`     // header cell bold
	Wrap     bool    `json:"wrap"`
	WrapFrom int     `json:"wrap_from,omitempty"` // 1-based first wrapped row
	WrapTo   int     `json:"wrap_to,omitempty"`   // 1-based last wrapped row
}

// Worksheet is the in-memory form of one output sheet before encoding.
// Row 1 of the encoded sheet is Header; Rows follow from row 2.
type Worksheet struct {
	Title   string         `json:"title"`
	Header  []string       `json:"header"`
	Rows    [][]any        `json:"rows"`
	Columns []ColumnFormat `json:"columns,omitempty"`
}

// LastRow returns the 1-based index of the last populated row, counting the header.
func (ws *Worksheet) LastRow() int {
	return len(ws.Rows) + 1
}

// JobState is a position in the export job lifecycle.
type JobState string

const (
	JobCreated   JobState = "created"
	JobEnqueued  JobState = "enqueued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus is a point-in-time snapshot of an export job.
type JobStatus struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Mode       ExportMode `json:"mode"`
	Target     string     `json:"target"`
	Records    int        `json:"records"`
	Sheets     int        `json:"sheets"`
	Rows       int        `json:"rows"`
	Bytes      int        `json:"bytes,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
