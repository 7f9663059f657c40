// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	profileIDKey ContextKey = "profileID"
	fidKey       ContextKey = "fid"
)

// ErrNoSession is returned when the request carries no authenticated profile.
var ErrNoSession = errors.New("no authenticated profile in request context")

// TokenValidator validates session tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (Subject, error)
}

// Subject identifies the signed-in profile.
type Subject interface {
	GetProfileID() uuid.UUID
	GetFID() int64
}

// AuthMiddleware rejects requests without a valid session token. The token is
// read from an "Authorization: Bearer" header, falling back to the session
// cookie named cookieName.
func AuthMiddleware(validator TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r, cookieName)
			if !ok {
				unauthorized(w)
				return
			}

			subject, err := validator.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject.GetProfileID(), subject.GetFID())))
		})
	}
}

// extractToken prefers the Authorization header. A malformed header is not
// rescued by the cookie.
func extractToken(r *http.Request, cookieName string) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}

	if cookieName == "" {
		return "", false
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
}

// WithSubject stores the authenticated profile on ctx.
func WithSubject(ctx context.Context, profileID uuid.UUID, fid int64) context.Context {
	ctx = context.WithValue(ctx, profileIDKey, profileID)
	return context.WithValue(ctx, fidKey, fid)
}

// GetProfileID extracts the authenticated profile ID from the request context.
func GetProfileID(r *http.Request) (uuid.UUID, error) {
	profileID, ok := r.Context().Value(profileIDKey).(uuid.UUID)
	if !ok || profileID == uuid.Nil {
		return uuid.Nil, ErrNoSession
	}
	return profileID, nil
}

// GetFID extracts the authenticated external identity id from the request context.
func GetFID(r *http.Request) (int64, error) {
	fid, ok := r.Context().Value(fidKey).(int64)
	if !ok {
		return 0, ErrNoSession
	}
	return fid, nil
}
