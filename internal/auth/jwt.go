package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/taskboard-be/internal/apperr"
)

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 identity tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. A nil clock defaults to time.Now.
func NewTokenManager(secret []byte, ttl time.Duration, now func() time.Time) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if now == nil {
		now = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenManager{secret: key, ttl: ttl, now: now}, nil
}

// Issue creates a signed token for userID that expires after the configured TTL.
func (m *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("cannot issue token without user id")
	}
	issuedAt := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses tokenStr and returns the embedded user id. Any failure wraps
// apperr.ErrTokenInvalid: bad signature, malformed input, unexpected
// algorithm, missing expiry or an expiry at or before the current time.
func (m *TokenManager) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", apperr.ErrTokenInvalid
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user id", apperr.ErrTokenInvalid)
	}
	return claims.UserID, nil
}
