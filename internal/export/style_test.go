package export

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/tally/internal/models"
)

func sampleSheet() *models.Worksheet {
	return &models.Worksheet{
		Title:  "Users",
		Header: []string{"id", "name", "email", "Failed Users Count"},
		Rows: [][]any{
			{int64(1), "Alice {prepared}", "a@x.com", int64(0)},
			{int64(2), "Bob {prepared}", "a.very.long.address@example.org", int64(0)},
		},
	}
}

func TestStyler_Apply(t *testing.T) {
	s, err := NewStyler(map[string]float64{"C": 10}, []string{"C"}, 6, 60)
	if err != nil {
		t.Fatal(err)
	}
	ws := sampleSheet()
	s.Apply(ws)

	if len(ws.Columns) != 4 {
		t.Fatalf("columns = %d, want 4", len(ws.Columns))
	}
	for i, col := range ws.Columns {
		if !col.Bold {
			t.Errorf("column %d header not bold", i)
		}
	}
	c := ws.Columns[2]
	if !c.Explicit || c.Width != 10 {
		t.Errorf("column C width = %v explicit=%v, want 10 explicit", c.Width, c.Explicit)
	}
	if !c.Wrap || c.WrapFrom != 1 || c.WrapTo != 3 {
		t.Errorf("column C wrap = %v %d..%d, want rows 1..3", c.Wrap, c.WrapFrom, c.WrapTo)
	}
	b := ws.Columns[1]
	if b.Explicit || b.Wrap {
		t.Errorf("column B should be auto-sized only: %+v", b)
	}
	if want := float64(len("Alice {prepared}") + autoSizePadding); b.Width != want {
		t.Errorf("column B width = %v, want %v", b.Width, want)
	}
	if a := ws.Columns[0]; a.Width != 6 {
		t.Errorf("column A width = %v, want min width 6", a.Width)
	}
	if d := ws.Columns[3]; d.Width != float64(len("Failed Users Count")+autoSizePadding) {
		t.Errorf("column D width = %v, want header width", d.Width)
	}
}

func TestStyler_maxWidthClamp(t *testing.T) {
	s, _ := NewStyler(nil, nil, 0, 12)
	ws := sampleSheet()
	s.Apply(ws)
	if ws.Columns[2].Width != 12 {
		t.Errorf("auto width should clamp to 12, got %v", ws.Columns[2].Width)
	}
}

func TestStyler_wideRunes(t *testing.T) {
	s, _ := NewStyler(nil, nil, 0, 0)
	ws := &models.Worksheet{Header: []string{"名前"}, Rows: [][]any{{"田中"}}}
	s.Apply(ws)
	if ws.Columns[0].Width != 4+autoSizePadding {
		t.Errorf("east asian width = %v, want %v", ws.Columns[0].Width, 4+autoSizePadding)
	}
}

func TestStyler_idempotentAndValuePreserving(t *testing.T) {
	s, _ := NewStyler(map[string]float64{"C": 10}, []string{"C"}, 6, 60)
	ws := sampleSheet()
	before := sampleSheet()

	s.Apply(ws)
	firstCols := append([]models.ColumnFormat(nil), ws.Columns...)
	s.Apply(ws)

	if !reflect.DeepEqual(ws.Rows, before.Rows) || !reflect.DeepEqual(ws.Header, before.Header) {
		t.Error("styling changed cell values")
	}
	if !reflect.DeepEqual(ws.Columns, firstCols) {
		t.Errorf("second Apply changed directives: %v vs %v", ws.Columns, firstCols)
	}
}

func TestStyler_overrideBeyondSheetIgnored(t *testing.T) {
	s, _ := NewStyler(map[string]float64{"Z": 30}, []string{"Z"}, 0, 0)
	ws := &models.Worksheet{Header: []string{"id"}, Rows: [][]any{{1}}}
	s.Apply(ws)
	if len(ws.Columns) != 1 || ws.Columns[0].Explicit || ws.Columns[0].Wrap {
		t.Errorf("unexpected columns: %+v", ws.Columns)
	}
}

func TestNewStyler_invalid(t *testing.T) {
	tests := []struct {
		name   string
		widths map[string]float64
		wrap   []string
	}{
		{"bad width column", map[string]float64{"1": 10}, nil},
		{"non-positive width", map[string]float64{"A": 0}, nil},
		{"bad wrap column", nil, []string{"C3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStyler(tt.widths, tt.wrap, 0, 0)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}
