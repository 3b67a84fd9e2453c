// Package cli formats command output for Tally.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/hyperjump/tally/internal/export"
	"github.com/hyperjump/tally/internal/models"
	"github.com/hyperjump/tally/internal/xlsx"
	"github.com/hyperjump/tally/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable tables (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// maxCellWidth caps cell text in tables.
const maxCellWidth = 40

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

// WriteUsers writes a user listing.
func WriteUsers(w io.Writer, users []*models.User, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, users)
	}
	table := newTable(w, []string{"ID", "Name", "Email", "Created"})
	for _, u := range users {
		table.Append([]string{
			strconv.FormatInt(u.ID, 10),
			utils.Truncate(u.Name, maxCellWidth),
			utils.Truncate(u.Email, maxCellWidth),
			u.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d users\n", len(users))
	return nil
}

// WriteWorksheets writes assembled worksheets, one table per sheet, followed by the
// column formatting each sheet would be written with.
func WriteWorksheets(w io.Writer, sheets []*models.Worksheet, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, sheets)
	}
	for i, ws := range sheets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Sheet %q (%d rows)\n", ws.Title, len(ws.Rows))
		table := newTable(w, ws.Header)
		for _, row := range ws.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = utils.Truncate(export.CellText(v), maxCellWidth)
			}
			table.Append(cells)
		}
		table.Render()
		writeColumnFormats(w, ws.Columns)
	}
	return nil
}

func writeColumnFormats(w io.Writer, cols []models.ColumnFormat) {
	if len(cols) == 0 {
		return
	}
	table := newTable(w, []string{"Column", "Width", "Source", "Wrap"})
	for i, c := range cols {
		source := "auto"
		if c.Explicit {
			source = "explicit"
		}
		wrap := "-"
		if c.Wrap {
			wrap = fmt.Sprintf("rows %d-%d", c.WrapFrom, c.WrapTo)
		}
		table.Append([]string{columnName(i), strconv.FormatFloat(c.Width, 'f', -1, 64), source, wrap})
	}
	table.Render()
}

// WriteSheets writes worksheets read back from a workbook. The first row of each sheet is
// treated as its header.
func WriteSheets(w io.Writer, sheets []xlsx.Sheet, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, sheets)
	}
	for i, sh := range sheets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		var header []string
		rows := sh.Rows
		if len(rows) > 0 {
			header, rows = rows[0], rows[1:]
		}
		fmt.Fprintf(w, "Sheet %q (%d rows)\n", sh.Name, len(rows))
		table := newTable(w, header)
		for _, row := range rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = utils.Truncate(v, maxCellWidth)
			}
			table.Append(cells)
		}
		table.Render()
	}
	return nil
}

// WriteJobStatus writes the status of an export job.
func WriteJobStatus(w io.Writer, st models.JobStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Job:      %s\n", st.ID)
	fmt.Fprintf(w, "State:    %s\n", st.State)
	fmt.Fprintf(w, "Mode:     %s\n", st.Mode)
	fmt.Fprintf(w, "Target:   %s\n", st.Target)
	fmt.Fprintf(w, "Records:  %d\n", st.Records)
	if st.State == models.JobCompleted {
		fmt.Fprintf(w, "Sheets:   %d\n", st.Sheets)
		fmt.Fprintf(w, "Rows:     %d\n", st.Rows)
		fmt.Fprintf(w, "Bytes:    %d\n", st.Bytes)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", st.Error)
	}
	if st.StartedAt != nil && st.FinishedAt != nil {
		fmt.Fprintf(w, "Elapsed:  %s\n", st.FinishedAt.Sub(*st.StartedAt).Round(time.Millisecond))
	}
	return nil
}

// columnName converts a 0-based index to a spreadsheet column letter.
func columnName(i int) string {
	name := ""
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}
