package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/tally/internal/models"
)

// autoSizePadding is added to the widest cell when auto-sizing a column.
const autoSizePadding = 2

// Styler assigns column formatting directives to populated worksheets.
type Styler struct {
	widths   map[int]float64 // 0-based column -> width
	wrap     map[int]bool
	minWidth float64
	maxWidth float64
}

// NewStyler returns a Styler. widths and wrap address columns by letter ("A", "C", "AA").
// Auto-sized widths are clamped to [minWidth, maxWidth]; a zero maxWidth means no upper bound.
func NewStyler(widths map[string]float64, wrap []string, minWidth, maxWidth float64) (*Styler, error) {
	s := &Styler{
		widths:   make(map[int]float64, len(widths)),
		wrap:     make(map[int]bool, len(wrap)),
		minWidth: minWidth,
		maxWidth: maxWidth,
	}
	for col, w := range widths {
		idx, err := columnIndex(col)
		if err != nil {
			return nil, err
		}
		if w <= 0 {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("column %s: width must be positive, got %v", col, w)}
		}
		s.widths[idx] = w
	}
	for _, col := range wrap {
		idx, err := columnIndex(col)
		if err != nil {
			return nil, err
		}
		s.wrap[idx] = true
	}
	return s, nil
}

func columnIndex(col string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(strings.TrimSpace(col)))
	if err != nil {
		return 0, &ConfigurationError{Msg: fmt.Sprintf("invalid column %q: %v", col, err)}
	}
	return n - 1, nil
}

// Apply sets ws.Columns: bold header, explicit widths, wrap from the header through the
// last data row, and auto-size for every column without an explicit width. Cell values are
// never touched, and applying twice yields the same directives.
func (s *Styler) Apply(ws *models.Worksheet) {
	n := len(ws.Header)
	for _, row := range ws.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	cols := make([]models.ColumnFormat, n)
	for i := range cols {
		cols[i].Bold = true
	}
	for i := range cols {
		if w, ok := s.widths[i]; ok {
			cols[i].Width = w
			cols[i].Explicit = true
		}
	}
	for i := range cols {
		if s.wrap[i] {
			cols[i].Wrap = true
			cols[i].WrapFrom = 1
			cols[i].WrapTo = ws.LastRow()
		}
	}
	for i := range cols {
		if !cols[i].Explicit {
			cols[i].Width = s.autoWidth(ws, i)
		}
	}
	ws.Columns = cols
}

func (s *Styler) autoWidth(ws *models.Worksheet, col int) float64 {
	widest := 0
	if col < len(ws.Header) {
		widest = runewidth.StringWidth(ws.Header[col])
	}
	for _, row := range ws.Rows {
		if col < len(row) {
			if w := runewidth.StringWidth(CellText(row[col])); w > widest {
				widest = w
			}
		}
	}
	w := float64(widest + autoSizePadding)
	w = math.Max(w, s.minWidth)
	if s.maxWidth > 0 {
		w = math.Min(w, s.maxWidth)
	}
	return w
}

// CellText renders a cell value the way it is measured for auto-sizing and printed by the CLI.
func CellText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
