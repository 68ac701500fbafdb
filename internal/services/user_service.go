package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/auth"
	"github.com/isdelr/taskboard-be/internal/database"
	"github.com/isdelr/taskboard-be/internal/metrics"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  models.UserView `json:"user"`
	Token string          `json:"token"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, name, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// PasswordHasher hashes and checks plaintext passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// TokenIssuer signs identity tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

const invalidCredentialsMessage = "Invalid email or password"

// UserService provides registration, login and user lookup.
type UserService struct {
	db     *sql.DB
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{
		db:     db,
		hasher: hasher,
		tokens: tokens,
		now:    utcNow,
	}
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a user and returns it together with a fresh token.
// The UNIQUE constraint on users.email decides races the pre-check misses.
func (s *UserService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	const op = "services.Register"

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return AuthResult{}, apperr.New(op, apperr.ErrValidation, "Name, email and password are required")
	}

	if _, err := s.getUserByEmail(ctx, email); err == nil {
		return AuthResult{}, errEmailTaken(op)
	} else if !apperr.IsNotFound(err) {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return AuthResult{}, apperr.New(op, apperr.ErrValidation, "Password must be at most 72 bytes")
		}
		return AuthResult{}, apperr.Internal(op, err)
	}

	now := s.now()
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return AuthResult{}, errEmailTaken(op)
		}
		return AuthResult{}, apperr.Internal(op, err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, apperr.Internal(op, err)
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	return AuthResult{User: user.View(), Token: token}, nil
}

// Login verifies credentials. An unknown email and a wrong password produce
// the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "services.Login"

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apperr.New(op, apperr.ErrValidation, "Email and password are required")
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return AuthResult{}, err
		}
		s.burnDecoy(password)
		metrics.AuthFailure(metrics.ReasonInvalidCredentials)
		return AuthResult{}, apperr.New(op, apperr.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, apperr.Internal(op, err)
	}
	if !ok {
		metrics.AuthFailure(metrics.ReasonInvalidCredentials)
		return AuthResult{}, apperr.New(op, apperr.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, apperr.Internal(op, err)
	}
	return AuthResult{User: user.View(), Token: token}, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = ?", id)
	return scanUser("services.GetUserByID", row)
}

func (s *UserService) getUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?", email)
	return scanUser("services.getUserByEmail", row)
}

// burnDecoy spends one hash verification so that unknown emails take about
// as long as wrong passwords.
func (s *UserService) burnDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.New().String())
		if err != nil {
			log.Error().Err(err).Msg("Failed to prepare decoy password hash")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_, _ = s.hasher.Verify(password, s.decoyHash)
	}
}

func scanUser(op string, row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.New(op, apperr.ErrNotFound, "User not found")
		}
		return models.User{}, apperr.Internal(op, err)
	}
	return user, nil
}

func errEmailTaken(op string) error {
	return apperr.New(op, apperr.ErrConflict, "User with this email already exists")
}

func utcNow() time.Time {
	return time.Now().UTC()
}
