// Package xlsx encodes worksheets to XLSX workbooks and reads them back.
package xlsx

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/tally/internal/models"
)

const defaultSheet = "Sheet1"

// ErrDuplicateSheet is returned by Encode when two worksheets share a title.
// Sheet names are compared case-insensitively, as spreadsheet applications do.
var ErrDuplicateSheet = errors.New("duplicate sheet title")

// Encoder writes worksheets as an XLSX workbook.
type Encoder struct{}

// NewEncoder returns a new Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// styles holds the style IDs registered once per workbook.
type styles struct {
	bold, wrap, boldWrap int
}

func newStyles(f *excelize.File) (*styles, error) {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, err
	}
	boldWrap, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, err
	}
	return &styles{bold: bold, wrap: wrap, boldWrap: boldWrap}, nil
}

// Encode returns the workbook bytes. Sheets appear in the given order; the first is active.
// Titles must be valid, distinct sheet names; a repeated title fails with ErrDuplicateSheet.
func (e *Encoder) Encode(sheets []*models.Worksheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheets to encode")
	}
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("register styles: %w", err)
	}
	for i, ws := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, ws.Title); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", ws.Title, err)
			}
		} else {
			if idx, err := f.GetSheetIndex(ws.Title); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", ws.Title, err)
			} else if idx != -1 {
				return nil, fmt.Errorf("sheet %q: %w", ws.Title, ErrDuplicateSheet)
			}
			if _, err := f.NewSheet(ws.Title); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", ws.Title, err)
			}
		}
		if err := writeSheet(f, ws, st); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", ws.Title, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, ws *models.Worksheet, st *styles) error {
	header := make([]any, len(ws.Header))
	for i, h := range ws.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(ws.Title, "A1", &header); err != nil {
		return err
	}
	for r, row := range ws.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(ws.Title, cell, &values); err != nil {
			return err
		}
	}
	for c, col := range ws.Columns {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if col.Width > 0 {
			if err := f.SetColWidth(ws.Title, name, name, col.Width); err != nil {
				return err
			}
		}
		if col.Wrap && col.WrapTo >= col.WrapFrom && col.WrapFrom > 0 {
			if err := f.SetCellStyle(ws.Title, fmt.Sprintf("%s%d", name, col.WrapFrom), fmt.Sprintf("%s%d", name, col.WrapTo), st.wrap); err != nil {
				return err
			}
		}
		if col.Bold {
			style := st.bold
			if col.Wrap && col.WrapFrom == 1 {
				style = st.boldWrap
			}
			if err := f.SetCellStyle(ws.Title, name+"1", name+"1", style); err != nil {
				return err
			}
		}
	}
	return nil
}
