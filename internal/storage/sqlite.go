// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tally/internal/models"
)

// queryable maps predicate field names to columns. Anything else is rejected.
var queryable = map[string]string{
	models.FieldID:    "id",
	models.FieldName:  "name",
	models.FieldEmail: "email",
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`
	_, err := db.Exec(schema)
	return err
}

const userColumns = `id, name, email, created_at, updated_at`

// CreateUser inserts a user. When u.ID is zero the database assigns one and u.ID is updated.
func (s *SQLiteStorage) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	var (
		result sql.Result
		err    error
	)
	if u.ID == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			u.Name, u.Email, u.CreatedAt, u.UpdatedAt,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.CreatedAt, u.UpdatedAt,
		)
	}
	if err != nil {
		return err
	}
	if u.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted id: %w", err)
		}
		u.ID = id
	}
	return nil
}

// BatchCreateUsers inserts multiple users in a transaction.
func (s *SQLiteStorage) BatchCreateUsers(ctx context.Context, users []*models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO users (id, name, email, created_at, updated_at) VALUES (NULLIF(?, 0), ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, u := range users {
		u.CreatedAt = now
		u.UpdatedAt = now
		result, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return err
		}
		if u.ID == 0 {
			if u.ID, err = result.LastInsertId(); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// FetchByID returns a user by ID, or an error wrapping ErrNotFound.
func (s *SQLiteStorage) FetchByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchAll returns every user ordered by id.
func (s *SQLiteStorage) FetchAll(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// CountMatching returns the number of users satisfying every condition in p.
// Each call is a fresh read; nothing is cached.
func (s *SQLiteStorage) CountMatching(ctx context.Context, p models.Predicate) (int64, error) {
	where, args, err := buildWhere(p)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&count)
	return count, err
}

func buildWhere(p models.Predicate) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, len(p))
	args := make([]any, len(p))
	for i, c := range p {
		col, ok := queryable[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("field %q cannot be queried", c.Field)
		}
		clauses[i] = col + " = ?"
		args[i] = c.Value
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// DeleteUser removes a user by ID.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountUsers returns the total number of users.
func (s *SQLiteStorage) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
