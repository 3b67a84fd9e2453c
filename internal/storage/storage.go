// Package storage defines the persistence interface for user records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tally/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines user record persistence and the read queries used by exports.
type Storage interface {
	// Read operations used by the export pipeline
	FetchAll(ctx context.Context) ([]*models.User, error)
	FetchByID(ctx context.Context, id int64) (*models.User, error)
	CountMatching(ctx context.Context, p models.Predicate) (int64, error)

	// Write operations
	CreateUser(ctx context.Context, u *models.User) error
	BatchCreateUsers(ctx context.Context, users []*models.User) error
	DeleteUser(ctx context.Context, id int64) error

	// Stats
	CountUsers(ctx context.Context) (int64, error)

	Close() error
}
