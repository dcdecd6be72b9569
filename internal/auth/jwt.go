package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskforge/taskforge-be/internal/models"
	"github.com/taskforge/taskforge-be/internal/webutil"
)

const tokenTTL = 24 * time.Hour

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionResolver checks a presented token against a user's live session set
// and resolves the owning user. A token missing from the set is revoked.
type SessionResolver interface {
	UserBySession(ctx context.Context, userID, token string) (models.User, error)
}

// Auth issues and validates signed bearer tokens.
type Auth struct {
	secret []byte
}

// New creates an Auth with the given signing secret.
func New(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// GenerateToken creates a new JWT for a given user id.
func (a *Auth) GenerateToken(userID string) (string, time.Time, error) {
	expirationTime := time.Now().Add(tokenTTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expirationTime, nil
}

// ValidateToken parses and validates a JWT string.
func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

type contextKey string

const (
	userContextKey  = contextKey("authUser")
	tokenContextKey = contextKey("authToken")
)

// UserFromContext returns the authenticated user attached by the middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// TokenFromContext returns the raw bearer token attached by the middleware.
// Logout needs it to revoke exactly the presenting session.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// Middleware creates a middleware for protecting routes. It validates the
// bearer token, requires a live session for it, and attaches the resolved
// user and the raw token to the request context. It never mutates state.
func (a *Auth) Middleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = parts[1]
				}
			}

			if tokenStr == "" {
				webutil.RespondErrorMessage(w, http.StatusUnauthorized, "please authenticate")
				return
			}

			claims, err := a.ValidateToken(tokenStr)
			if err != nil {
				webutil.RespondErrorMessage(w, http.StatusUnauthorized, "please authenticate")
				return
			}

			user, err := sessions.UserBySession(r.Context(), claims.UserID, tokenStr)
			if err != nil {
				webutil.RespondErrorMessage(w, http.StatusUnauthorized, "please authenticate")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
