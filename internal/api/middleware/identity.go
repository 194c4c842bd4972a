package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/domain"
)

// SessionIDHeader carries the anonymous session identity when no bearer
// token is present.
const SessionIDHeader = "X-Session-ID"

// Token validation errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// IdentityMiddleware resolves the learner identity for every request:
// a valid Bearer JWT yields a user learner, otherwise the X-Session-ID
// header yields an anonymous learner. A request with neither (or with an
// invalid token) is rejected; anonymous access is intentional, unidentified
// access is not.
type IdentityMiddleware struct {
	jwtSecret []byte
}

// NewIdentityMiddleware creates a new IdentityMiddleware with the given
// JWT signing secret.
func NewIdentityMiddleware(jwtSecret string) *IdentityMiddleware {
	if jwtSecret == "" {
		panic("jwtSecret cannot be empty")
	}
	return &IdentityMiddleware{jwtSecret: []byte(jwtSecret)}
}

// Resolve validates the request's identity and adds the learner to the
// request context.
func (m *IdentityMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
				return
			}

			userID, err := m.validateToken(parts[1])
			if err != nil {
				switch {
				case errors.Is(err, ErrExpiredToken):
					shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
				default:
					shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			ctx := shared.WithLearner(r.Context(), domain.NewUserLearner(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if sessionID := r.Header.Get(SessionIDHeader); sessionID != "" {
			ctx := shared.WithLearner(r.Context(), domain.NewSessionLearner(sessionID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
	})
}

// validateToken parses and verifies a JWT and extracts the user ID from its
// subject claim.
func (m *IdentityMiddleware) validateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user ID", ErrInvalidToken)
	}
	return userID, nil
}

// GetLearner extracts the learner identity from the request context.
// Returns the learner and a boolean indicating if it was found.
func GetLearner(r *http.Request) (domain.Learner, bool) {
	return shared.LearnerFromContext(r.Context())
}
