package models

import (
	"fmt"
	"strings"
)

// Condition is a single equality test on a record field.
type Condition struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Predicate is a conjunction of equality conditions. An empty predicate matches every record.
type Predicate []Condition

// Where starts a predicate with field = value.
func Where(field string, value any) Predicate {
	return Predicate{{Field: field, Value: value}}
}

// And returns a new predicate with field = value appended.
func (p Predicate) And(field string, value any) Predicate {
	out := make(Predicate, len(p), len(p)+1)
	copy(out, p)
	return append(out, Condition{Field: field, Value: value})
}

// String renders the predicate for logs, e.g. `email = "a@x.com" AND id = 1`.
func (p Predicate) String() string {
	if len(p) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = fmt.Sprintf("%s = %#v", c.Field, c.Value)
	}
	return strings.Join(parts, " AND ")
}
