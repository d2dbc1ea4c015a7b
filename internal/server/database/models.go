package database

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        *string // nil when not provided
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Setting is a single key/value configuration row.
// At most one value exists per key (upsert semantics).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
