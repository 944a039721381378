package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/event-board/internal/model"
)

var errNoCredentials = errors.New("auth: no bearer credentials presented")

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key like
// "user", any package that knows the string can read or shadow the value.
// A package-private type means only this package can produce the key, so
// only this package controls what lives under it.
type contextKey string

const userKey contextKey = "user"

// UserResolver loads the account behind a validated token. Satisfied by
// repository.UserRepository; declared here so the middleware depends on
// the one method it needs rather than the whole store.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth is the authorization gate for protected routes.
//
// Contract, in order:
//  1. extract the bearer token from the Authorization header → 401 if absent
//  2. validate the JWT (signature, expiry, issuer) → 401 if invalid
//  3. resolve the user by id → 401 if the account no longer exists
//  4. attach the resolved *model.User to the request context
//
// Step 3 matters: a token outlives account deletion by up to 24 hours, and
// deleted accounts must not keep mutating events. The response body never
// says WHICH step failed — that would tell an attacker whether a guessed
// token is well-formed.
func RequireAuth(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, tokens, users)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the identity if a valid token is present but never
// blocks the request. Used on the live-update stream, where anonymous
// clients may listen but authenticated ones are identified in the logs.
func OptionalAuth(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, tokens, users); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) on anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// resolveUser extracts "Authorization: Bearer <token>", validates the token,
// and loads the account it belongs to.
func resolveUser(r *http.Request, tokens *TokenService, users UserResolver) (*model.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoCredentials
	}

	// "Bearer <token>", scheme case-insensitive per RFC 7235.
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errNoCredentials
	}

	claims, err := tokens.Validate(parts[1])
	if err != nil {
		return nil, err
	}

	return users.GetUserByID(r.Context(), claims.UserID)
}
