package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the users table.
type Repository interface {
	// Create inserts u and fills its ID and timestamps.
	// Returns ErrEmailAlreadyExists when the email is taken.
	Create(ctx context.Context, u *User) error

	// FindByID returns ErrUserNotFound when no row matches.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail returns ErrUserNotFound when no row matches.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdateDisplayName returns ErrUserNotFound when no row matches.
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
}
