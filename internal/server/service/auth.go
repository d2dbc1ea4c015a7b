package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"filegate/internal/server/database"

	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for the auth service.
var (
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrInvalidEmail     = errors.New("email address is not valid")
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUnknownUser      = errors.New("no account with that username or email")
	ErrWrongPassword    = errors.New("wrong password")
)

// DefaultAdminPassword is the password of the seeded admin account.
// It is expected to be rotated right after first boot.
const DefaultAdminPassword = "admin"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Identity is the authenticated-user snapshot carried by sessions.
type Identity struct {
	ID       int64
	Username string
	Email    string
	IsAdmin  bool
}

// AuthService contains registration, login and bootstrap logic.
type AuthService struct {
	repo *database.Repository
}

// NewAuthService creates a new auth service.
func NewAuthService(repo *database.Repository) *AuthService {
	return &AuthService{repo: repo}
}

// Register validates the form input, hashes the password with bcrypt and
// creates the user. The captcha check happens at the transport layer
// before this is called.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*Identity, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(username) < 3 {
		return nil, ErrUsernameTooShort
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	// Pre-checks give the user a precise message; the unique constraints
	// still catch the race between check and insert.
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Username:     username,
		Email:        &email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", username)
	return identityOf(user), nil
}

// Login verifies credentials. The identifier may be a username or an
// email address.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Identity, error) {
	user, err := s.repo.GetUserByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	return identityOf(user), nil
}

// ChangePassword replaces the password of an existing account.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	slog.Info("password changed", "user_id", userID)
	return nil
}

// Bootstrap seeds the admin account on an empty database.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}
	admin := &database.User{
		Username:     "admin",
		PasswordHash: string(hash),
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	slog.Warn("seeded default admin account, change its password",
		"username", admin.Username)
	return nil
}

func identityOf(user *database.User) *Identity {
	id := &Identity{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	if user.Email != nil {
		id.Email = *user.Email
	}
	return id
}
