package export

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/tally/internal/models"
)

func TestRowMapper_Map(t *testing.T) {
	store := newMemStore(aliceAndBob()...)
	m := NewRowMapper([]string{"id", "name", "email"}, store, FlagColumn("Failed Users Count", "a@x.com"))

	rec := models.Fields{{Key: "email", Value: "a@x.com"}, {Key: "id", Value: int64(1)}, {Key: "name", Value: "Alice"}}
	got, err := m.Map(context.Background(), 0, rec)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{int64(1), "Alice", "a@x.com", int64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Map = %v, want %v", got, want)
	}
	if m.Width() != len(got) {
		t.Errorf("Width() = %d, cells = %d", m.Width(), len(got))
	}

	got, err = m.Map(context.Background(), 1, models.Fields{{Key: "id", Value: int64(2)}, {Key: "name", Value: "Bob"}, {Key: "email", Value: "b@x.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if got[3] != int64(0) {
		t.Errorf("flag for non-matching row = %v, want 0", got[3])
	}
}

func TestRowMapper_derivedColumnQueriedPerRow(t *testing.T) {
	store := newMemStore(&models.User{ID: 1, Name: "Alice", Email: "a@x.com"})
	m := NewRowMapper([]string{"id"}, store, FlagColumn("flag", "ref@x.com"))
	ctx := context.Background()
	rec := models.Fields{{Key: "id", Value: int64(1)}}

	first, _ := m.Map(ctx, 0, rec)
	store.put(&models.User{ID: 1, Name: "Alice", Email: "ref@x.com"})
	second, _ := m.Map(ctx, 1, rec)

	if first[1] != int64(0) || second[1] != int64(1) {
		t.Errorf("expected fresh reads per row, got %v then %v", first[1], second[1])
	}
	if store.counts != 2 {
		t.Errorf("expected 2 count queries, got %d", store.counts)
	}
}

func TestRowMapper_missingField(t *testing.T) {
	m := NewRowMapper([]string{"id", "name", "email"}, newMemStore())
	_, err := m.Map(context.Background(), 3, models.Fields{{Key: "id", Value: 1}, {Key: "name", Value: "x"}})
	var rowErr *RowMappingError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowMappingError, got %v", err)
	}
	if rowErr.Row != 3 || rowErr.Key != "email" {
		t.Errorf("got row %d key %q", rowErr.Row, rowErr.Key)
	}
}

func TestRowMapper_extraField(t *testing.T) {
	m := NewRowMapper([]string{"id"}, nil)
	_, err := m.Map(context.Background(), 0, models.Fields{{Key: "id", Value: 1}, {Key: "phone", Value: "555"}})
	var rowErr *RowMappingError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowMappingError, got %v", err)
	}
	if rowErr.Key != "phone" {
		t.Errorf("Key = %q, want phone", rowErr.Key)
	}
}

func TestFlagColumn_predicate(t *testing.T) {
	col := FlagColumn("flag", "ref@x.com")
	tests := []struct {
		name    string
		rec     models.Fields
		want    models.Predicate
		wantErr bool
	}{
		{"int64 id", models.Fields{{Key: "id", Value: int64(4)}}, models.Where("email", "ref@x.com").And("id", int64(4)), false},
		{"int id", models.Fields{{Key: "id", Value: 4}}, models.Where("email", "ref@x.com").And("id", int64(4)), false},
		{"string id", models.Fields{{Key: "id", Value: "4"}}, models.Where("email", "ref@x.com").And("id", int64(4)), false},
		{"missing id", models.Fields{{Key: "name", Value: "x"}}, nil, true},
		{"bad id", models.Fields{{Key: "id", Value: "four"}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := col.Predicate(tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Predicate = %v, want %v", got, tt.want)
			}
		})
	}
}
