package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hyperjump/tally/internal/models"
)

// Counter answers aggregate queries against the record store.
type Counter interface {
	CountMatching(ctx context.Context, p models.Predicate) (int64, error)
}

// DerivedColumn is a trailing column whose value is the number of stored records matching
// a predicate built from the row being mapped.
type DerivedColumn struct {
	Label     string
	Predicate func(rec models.Fields) (models.Predicate, error)
}

// FlagColumn counts records whose email equals referenceEmail and whose id equals the row's id.
// The result is 0 or 1 per row.
func FlagColumn(label, referenceEmail string) DerivedColumn {
	return DerivedColumn{
		Label: label,
		Predicate: func(rec models.Fields) (models.Predicate, error) {
			v, ok := rec.Get(models.FieldID)
			if !ok {
				return nil, fmt.Errorf("missing field %q", models.FieldID)
			}
			id, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			return models.Where(models.FieldEmail, referenceEmail).And(models.FieldID, id), nil
		},
	}
}

// RowMapper converts prepared records to ordered cell values.
type RowMapper struct {
	keys    []string
	derived []DerivedColumn
	counter Counter
}

// NewRowMapper returns a mapper emitting keys in order followed by one cell per derived column.
// counter may be nil when there are no derived columns.
func NewRowMapper(keys []string, counter Counter, derived ...DerivedColumn) *RowMapper {
	return &RowMapper{keys: keys, derived: derived, counter: counter}
}

// Width returns the number of cells each mapped row has.
func (m *RowMapper) Width() int {
	return len(m.keys) + len(m.derived)
}

// Map returns the cells for the record at position row. Derived columns query the store on
// every call; nothing is cached between rows.
func (m *RowMapper) Map(ctx context.Context, row int, rec models.Fields) ([]any, error) {
	cells := make([]any, 0, m.Width())
	for _, key := range m.keys {
		v, ok := rec.Get(key)
		if !ok {
			return nil, &RowMappingError{Row: row, Key: key, Reason: "missing field"}
		}
		cells = append(cells, v)
	}
	if len(rec) != len(m.keys) {
		return nil, &RowMappingError{
			Row:    row,
			Key:    extraKey(rec, m.keys),
			Reason: fmt.Sprintf("record has %d fields, header has %d", len(rec), len(m.keys)),
		}
	}
	for _, d := range m.derived {
		p, err := d.Predicate(rec)
		if err != nil {
			return nil, &RowMappingError{Row: row, Reason: d.Label, Err: err}
		}
		n, err := m.counter.CountMatching(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("row %d: count %q: %w", row, d.Label, err)
		}
		cells = append(cells, n)
	}
	return cells, nil
}

func extraKey(rec models.Fields, keys []string) string {
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}
	for _, fld := range rec {
		if _, ok := known[fld.Key]; !ok {
			return fld.Key
		}
	}
	return ""
}

// toInt64 converts a record id to int64.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("id %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("id %q is not an integer", n)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("id has unsupported type %T", v)
	}
}
