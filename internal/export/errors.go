package export

import (
	"fmt"
	"strings"
)

// ConfigurationError reports invalid pipeline input or settings. Raised before any I/O.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// SchemaMismatchError reports a record field with no entry in the label table.
type SchemaMismatchError struct {
	Key string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: field %q has no label", e.Key)
}

// RowMappingError reports a record that cannot be mapped to a header-width row.
// Row is the record's 0-based position in the export request.
type RowMappingError struct {
	Row    int
	Key    string
	Reason string
	Err    error
}

func (e *RowMappingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "row %d", e.Row)
	if e.Key != "" {
		fmt.Fprintf(&b, ": field %q", e.Key)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *RowMappingError) Unwrap() error { return e.Err }

// EmptyExportError reports an export request with no records.
type EmptyExportError struct {
	Target string
}

func (e *EmptyExportError) Error() string {
	return fmt.Sprintf("export %q contains no records", e.Target)
}

// WriteError reports a failure while encoding the workbook or depositing it in storage.
type WriteError struct {
	Op     string // "encode" or "store"
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
