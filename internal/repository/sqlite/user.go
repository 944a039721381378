package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, github_id,
	reset_token_hash, reset_token_expires, created_at, updated_at`

// CreateUser inserts a new user.
//
// Both stores share the *DB receiver, so user methods carry the User suffix
// or prefix to keep the method sets disjoint from the event store's.
//
// DUPLICATE EMAIL DETECTION:
// The unique index on email (COLLATE NOCASE) makes the INSERT fail on a
// duplicate regardless of casing. database/sql gives us no typed error for
// constraint violations with this driver, so we match on the failed
// constraint name — brittle in general, but the constraint is ours and the
// message is stable across modernc.org/sqlite releases.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, github_id,
			reset_token_hash, reset_token_expires, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '', NULL, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email. The caller passes a normalized
// address; the NOCASE index makes the match case-insensitive either way.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// UpsertGitHub inserts or refreshes a user keyed by their GitHub ID.
//
// On repeat sign-ins the internal ID is preserved — events created by the
// account must keep pointing at the same user row.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		// Refresh name/email in case the GitHub profile changed.
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
			user.Name, user.Email, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	return db.CreateUser(ctx, user)
}

// SetResetToken stores the reset token digest and expiry on the user row.
func (db *DB) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_token_expires = ?, updated_at = ?
		 WHERE id = ?`,
		tokenHash, expires, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token for user %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// ClearResetToken removes any pending reset token from the user row.
// Clearing a user that has no pending token is a no-op, not an error.
func (db *DB) ClearResetToken(ctx context.Context, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = '', reset_token_expires = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing reset token for user %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// GetByResetTokenHash finds the user holding a reset token digest, but only
// while the token is still valid (expiry strictly after now).
//
// Expired and unknown digests are indistinguishable on purpose: both return
// ErrNotFound, so callers can't probe whether a token ever existed.
func (db *DB) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	if tokenHash == "" {
		// An empty hash would match every user without a pending reset.
		return nil, apperror.NotFound("reset token", tokenHash)
	}

	user, err := db.getUser(ctx,
		`WHERE reset_token_hash = ? AND reset_token_expires > ?`, tokenHash, now)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("reset token", tokenHash)
		}
		return nil, err
	}
	return user, nil
}

// CompletePasswordReset replaces the password hash AND clears the pending
// reset token in a single UPDATE.
//
// One statement means one atomic step: there is no window where the new
// password is live while the old token is still redeemable. Two separate
// updates would leave the token valid if the second one failed.
func (db *DB) CompletePasswordReset(ctx context.Context, userID, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token_hash = '',
			reset_token_expires = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: completing password reset for user %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// getUser runs a single-row user SELECT with the given WHERE clause.
//
// reset_token_expires is nullable, so it scans through sql.NullTime — the
// zero time.Time means "no pending reset" in the model.
func (db *DB) getUser(ctx context.Context, where string, args ...any) (*model.User, error) {
	var (
		u       model.User
		expires sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, args...,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.GitHubID,
		&u.ResetTokenHash,
		&expires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if expires.Valid {
		u.ResetTokenExpires = expires.Time
	}

	return &u, nil
}

// requireRowAffected translates "UPDATE matched nothing" into NotFound.
func requireRowAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the named column.
func isUniqueViolation(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), column)
}
