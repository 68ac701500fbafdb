package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/taskboard-be/internal/apperr"
	"github.com/isdelr/taskboard-be/internal/metrics"
	"github.com/isdelr/taskboard-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

type identityContextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity stored by the Guard middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserResolver loads a live user record. Missing users must surface as
// apperr.ErrNotFound.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Guard creates a middleware for protecting routes. Requests without a valid
// token for an existing user are answered with 401 and never reach next.
func Guard(tokens TokenVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				metrics.AuthFailure(metrics.ReasonMissingToken)
				writeAuthError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				metrics.AuthFailure(metrics.ReasonInvalidToken)
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					metrics.AuthFailure(metrics.ReasonUnknownUser)
					log.Warn().Str("user_id", userID).Msg("Token refers to a user that no longer exists")
					writeAuthError(w, http.StatusUnauthorized, "User not found")
					return
				}
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve user from token")
				writeAuthError(w, http.StatusInternalServerError, "Something went wrong")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: user.ID, Name: user.Name, Email: user.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
