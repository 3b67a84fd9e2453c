package export

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/tally/internal/models"
)

func TestDeriveHeaders(t *testing.T) {
	records := models.UserFields(aliceAndBob())
	h, err := DeriveHeaders(records, models.DefaultUserLabels(), "Failed Users Count")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"id", "name", "email"}; !reflect.DeepEqual(h.Keys, want) {
		t.Errorf("Keys = %v, want %v", h.Keys, want)
	}
	if want := []string{"id", "name", "email", "Failed Users Count"}; !reflect.DeepEqual(h.Labels, want) {
		t.Errorf("Labels = %v, want %v", h.Labels, want)
	}
}

func TestDeriveHeaders_customLabelsFollowFirstRecordOrder(t *testing.T) {
	records := []models.Fields{{{Key: "email", Value: "x"}, {Key: "id", Value: 1}}}
	labels := models.LabelTable{"id": "ID #", "email": "Email"}
	h, err := DeriveHeaders(records, labels)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Email", "ID #"}; !reflect.DeepEqual(h.Labels, want) {
		t.Errorf("Labels = %v, want %v", h.Labels, want)
	}
}

func TestDeriveHeaders_empty(t *testing.T) {
	_, err := DeriveHeaders(nil, models.DefaultUserLabels())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Msg != "cannot derive headers from empty record set" {
		t.Errorf("message: %q", cfgErr.Msg)
	}
}

func TestDeriveHeaders_unresolvedKey(t *testing.T) {
	records := []models.Fields{{{Key: "id", Value: 1}, {Key: "phone", Value: "555"}}}
	_, err := DeriveHeaders(records, models.DefaultUserLabels())
	var schemaErr *SchemaMismatchError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if schemaErr.Key != "phone" {
		t.Errorf("Key = %q, want phone", schemaErr.Key)
	}
}

func TestDeriveHeaders_onlyFirstRecordConsulted(t *testing.T) {
	records := []models.Fields{
		{{Key: "id", Value: 1}},
		{{Key: "id", Value: 2}, {Key: "phone", Value: "555"}},
	}
	h, err := DeriveHeaders(records, models.DefaultUserLabels())
	if err != nil {
		t.Fatalf("later record shapes must not be validated here: %v", err)
	}
	if len(h.Labels) != 1 {
		t.Errorf("Labels = %v", h.Labels)
	}
}
