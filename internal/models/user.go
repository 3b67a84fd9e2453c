// Package models defines core data structures for users, export requests, and worksheets.
package models

import "time"

// User represents a stored user record.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserInput is the input for creating a user.
type UserInput struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Field keys exposed by a User to the export pipeline.
const (
	FieldID    = "id"
	FieldName  = "name"
	FieldEmail = "email"
)

// Fields returns the user as an ordered field mapping (id, name, email).
func (u *User) Fields() Fields {
	return Fields{
		{Key: FieldID, Value: u.ID},
		{Key: FieldName, Value: u.Name},
		{Key: FieldEmail, Value: u.Email},
	}
}

// UserFields converts users to field mappings, preserving order.
func UserFields(users []*User) []Fields {
	out := make([]Fields, len(users))
	for i, u := range users {
		out[i] = u.Fields()
	}
	return out
}

// LabelTable maps a field key to its human-readable column label.
type LabelTable map[string]string

// DefaultUserLabels is the label table for User records.
func DefaultUserLabels() LabelTable {
	return LabelTable{
		FieldID:    "id",
		FieldName:  "name",
		FieldEmail: "email",
	}
}
