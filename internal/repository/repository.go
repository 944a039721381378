// Package repository defines the storage interfaces the service layer
// depends on. The sqlite subpackage provides the concrete implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/event-board/internal/model"
)

// UserRepository is the credential store: user records plus the
// password-reset token lifecycle.
//
// All email lookups expect a normalized address (lowercased, trimmed) —
// normalization happens once, in the service layer, so the store never has
// to guess.
// User methods carry User in the name where the event store claims the
// plain form — both interfaces are implemented by the same sqlite.DB, so
// the method sets must stay disjoint.
type UserRepository interface {
	// CreateUser inserts a new user. Fails with apperror.ErrConflict if
	// the email is already registered (uniqueness is case-insensitive).
	CreateUser(ctx context.Context, user *model.User) error

	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// UpsertGitHub inserts or refreshes a user keyed by GitHub ID,
	// preserving the internal ID on repeat sign-ins.
	UpsertGitHub(ctx context.Context, user *model.User) error

	// SetResetToken stores the reset token digest and its expiry for the
	// user; ClearResetToken removes both. GetByResetTokenHash finds the
	// user holding the digest, but only while expiry > now — a stale token
	// behaves exactly like a nonexistent one.
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, userID string) error
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)

	// CompletePasswordReset atomically sets the new password hash and
	// clears the pending reset token, so a redeemed token can never
	// outlive the password change.
	CompletePasswordReset(ctx context.Context, userID, passwordHash string) error
}

// EventRepository persists event records with creator ownership.
//
// Read paths (GetByID, List) resolve the creator to a PublicUser so the API
// can render "who created this" without a second query. List always returns
// events sorted by event date, ascending.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id string) error
}
