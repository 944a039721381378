// Package auth provides session tokens, password hashing, and the one-time
// password-reset tokens for the event board API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers (or logs in) with email + password
// 2. Server verifies credentials and issues a JWT access token
// 3. The client sends it back on every API call as "Authorization: Bearer <token>"
// 4. Middleware validates the JWT, loads the user, and puts the identity in
//    the request context for handlers and ownership checks
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store
// session data. Everything needed (userID, email, name, expiry) is inside
// the signed token, and the HMAC signature ensures nobody can tamper with
// it without the secret key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long an issued session token stays valid.
// After 24 hours the client must log in again.
const SessionDuration = 24 * time.Hour

const issuer = "event-board"

// Claims is the verified identity carried by a session token.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must be used for both operations — keep it out of version control and
// rotate it periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// sessionClaims is the JWT payload. It embeds jwt.RegisteredClaims (sub,
// exp, iat, iss) and adds the email and display name so clients can render
// the logged-in user without an extra round trip.
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given identity.
//
// Token lifetime is SessionDuration (24h). Signing algorithm is HS256 —
// symmetric HMAC, fine for a single-server deployment sharing one secret.
func (s *TokenService) Generate(userID, email, name string) (string, error) {
	return s.GenerateWithDuration(userID, email, name, SessionDuration)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used by tests to cross the expiry boundary without sleeping.
func (s *TokenService) GenerateWithDuration(userID, email, name string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token, returning the identity it
// was issued with.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens minted by other apps on the same host)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Callers get the same generic error whether the token is malformed or
// merely expired — distinguishing the two would leak signing details to
// whoever is probing the API.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid or expired token")
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Claims{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.Name,
	}, nil
}
