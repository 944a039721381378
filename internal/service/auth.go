// Package service — authentication business logic.
//
// AuthService is the business logic layer for accounts and sessions. It sits
// between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ mailer.Sender (reset emails)
//
// KEY RESPONSIBILITIES:
//   - Register and log in email/password accounts
//   - Drive the password-reset token lifecycle (issue, redeem, invalidate)
//   - Orchestrate the optional GitHub OAuth callback
//   - Keep all auth rules in one place, away from HTTP concerns
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/mailer"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mail      mailer.Sender
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mail mailer.Sender,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		mail:      mail,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations.
// It bundles the user record and the issued JWT together so the caller
// (the HTTP handler) can build the response in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new email/password account and logs it in.
//
// Emails are normalized (trimmed, lowercased) before storage so that
// "Alice@X.com" and "alice@x.com" are the same account. A duplicate email
// surfaces as apperror.ErrConflict from the repository and is passed through
// unchanged — the handler maps it to 409.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueSession(user)
}

// Login authenticates an email/password account.
//
// Both "no such account" and "wrong password" return the same Unauthorized
// error with the same message, so the endpoint cannot be used to probe which
// emails are registered. Accounts created through GitHub OAuth have an empty
// password hash and can never log in with a password.
//
// A successful login does NOT touch any outstanding reset token: requesting
// a reset and then remembering the password must not strand the token in a
// half-invalidated state.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	if user.PasswordHash == "" || s.passwords.Verify(user.PasswordHash, password) != nil {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issueSession(user)
}

// ForgotPassword starts a password reset for the given email.
//
// FLOW:
//
//  1. Look up the account (unknown email → NotFound; this endpoint
//     deliberately discloses account existence so the UI can tell the
//     user their address was mistyped)
//  2. Generate a random token; persist only its SHA-256 digest plus a
//     one-hour expiry — a fresh request overwrites any previous token
//  3. Email the raw token to the account owner
//
// If the email cannot be sent the stored digest is rolled back so the
// account is not left with a token nobody received. The raw token is
// returned so development deployments can expose it in the response; the
// handler decides whether the client may see it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	raw, hash, err := auth.GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("service/auth: generating reset token: %w", err)
	}

	expires := time.Now().Add(auth.ResetTokenDuration)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		return "", fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	if err := s.mail.SendPasswordReset(ctx, user.Email, user.Name, raw); err != nil {
		// Roll back so the failed request leaves no live token behind.
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("clearing reset token after send failure",
				slog.String("userID", user.ID),
				slog.Any("error", clearErr),
			)
		}
		return "", fmt.Errorf("service/auth: sending reset email: %w", err)
	}

	s.logger.Info("password reset requested", slog.String("userID", user.ID))

	return raw, nil
}

// ResetPassword redeems a reset token and sets a new password.
//
// The raw token is hashed and looked up against unexpired digests. On a
// match the password replacement and the token clear happen in one atomic
// repository call, so a token can be redeemed at most once — presenting it
// again fails, and no partial failure can leave the token redeemable after
// the password changed. Invalid, expired, and already-used tokens are
// indistinguishable to the caller.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.ValidationFailed("token", "Invalid or expired reset token")
	}
	if newPassword == "" {
		return apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByResetTokenHash(ctx, auth.HashResetToken(token), time.Now())
	if err != nil {
		return apperror.ValidationFailed("token", "Invalid or expired reset token")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}

	if err := s.users.CompletePasswordReset(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: completing password reset: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))

	return nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a profile, this method
// upserts the user (create on first login, refresh name/email afterwards)
// and issues the same session JWT a password login would.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	// GitHub users may hide their email; the noreply form keeps the
	// email column unique without exposing anything GitHub doesn't.
	email := ghUser.Email
	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", ghUser.Login)
	}
	user := &model.User{
		GitHubID: ghUser.ID,
		Name:     name,
		Email:    normalizeEmail(email),
	}

	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issueSession(user)
}

func (s *AuthService) issueSession(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
