package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already taken")
)

// Repository provides CRUD operations for users and settings.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// --- Users ---

// CreateUser inserts a new user record and fills in its generated ID.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	res, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		user.Username,
		nullableString(user.Email),
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByUsername retrieves a user by exact username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, "SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = ?", username)
}

// GetUserByIdentifier retrieves a user whose username or email matches
// the identifier. Login accepts either.
func (r *Repository) GetUserByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return r.getUser(ctx, "SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = ? OR email = ?", identifier, identifier)
}

// GetUserByEmail retrieves a user by exact email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE email = ?", email)
}

func (r *Repository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	user := &User{}
	var email sql.NullString
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *Repository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.SQL.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the total number of registered users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.SQL.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// --- Settings ---

// GetSetting returns the stored value for key, or fallback when absent.
func (r *Repository) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := r.db.SQL.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fallback, nil
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts the value for key.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// EnsureSetting inserts fallback for key if no value is stored yet and
// returns the value now in effect.
func (r *Repository) EnsureSetting(ctx context.Context, key, fallback string) (string, error) {
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO NOTHING
	`, key, fallback)
	if err != nil {
		return "", fmt.Errorf("failed to ensure setting %s: %w", key, err)
	}
	return r.GetSetting(ctx, key, fallback)
}

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
